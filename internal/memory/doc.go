// Package memory configures the Go runtime's soft memory limit for
// containerized deployments.
//
// Go does not derive GOMEMLIMIT from cgroup limits. [ConfigureFromEnv]
// reads the container limit from MEMORY_LIMIT (typically injected through
// the Kubernetes Downward API) and sets GOMEMLIMIT to MEMORY_RATIO of it:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"
//
// The remainder is left for memory the Go runtime does not see: FFmpeg and
// ffprobe child processes, libvips allocations and goroutine stacks. An
// explicit GOMEMLIMIT always wins.
package memory
