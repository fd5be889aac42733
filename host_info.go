package nmp

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// HostInfo describes the machine the host side runs on
type HostInfo struct {
	GOARCH   string
	NumCPU   int
	Features []string
}

// DetectHost reports the host architecture and its SIMD extensions
func DetectHost() HostInfo {
	info := HostInfo{
		GOARCH: runtime.GOARCH,
		NumCPU: runtime.NumCPU(),
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		for _, f := range []struct {
			name string
			has  bool
		}{
			{"SSE4", cpu.X86.HasSSE41 || cpu.X86.HasSSE42},
			{"AVX", cpu.X86.HasAVX},
			{"AVX2", cpu.X86.HasAVX2},
			{"FMA", cpu.X86.HasFMA},
			{"AVX512F", cpu.X86.HasAVX512F},
		} {
			if f.has {
				info.Features = append(info.Features, f.name)
			}
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			info.Features = append(info.Features, "NEON")
		}
		if cpu.ARM64.HasSVE {
			info.Features = append(info.Features, "SVE")
		}
	}
	return info
}

// String returns a one-line description
func (h HostInfo) String() string {
	features := "scalar"
	if len(h.Features) > 0 {
		features = strings.Join(h.Features, " ")
	}
	return fmt.Sprintf("%s/%d cores (%s)", h.GOARCH, h.NumCPU, features)
}
