// Package media prepares uploaded still images for the encoder.
//
// Every upload passes through [NormalizeToJPEG], which decodes PNG, JPEG and
// WebP (via golang.org/x/image/webp), applies EXIF orientation, flattens
// transparency onto white and writes an even-sized RGB JPEG. Inputs that do
// not decode are reported as [*DecodeError].
//
// When pre-optimization is enabled an [Optimizer] additionally shrinks
// frames larger than a configured bound. It uses libvips (govips) when
// [InitVips] has been called and github.com/disintegration/imaging
// otherwise. Optimization never fails a request: on any error the
// normalized frame is kept as is.
package media
