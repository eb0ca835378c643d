package config

import (
	"fmt"
	"os"
	"runtime"
)

// Profile is a hardware capability class, used to pick scheduler defaults
// appropriate to the board the engine is running on (spec.md never
// mandates tuning by board; this is carried over from the teacher's
// per-board resource-limit profiles, narrowed to what a motion engine
// actually needs to vary: RT priority and how many motors it's sane to
// round-robin on one thread).
type Profile string

const (
	// ProfileMinimal - Pi Zero, BeagleBone: single motor, modest priority.
	ProfileMinimal Profile = "minimal"

	// ProfileStandard - Pi 3/4, Orange Pi.
	ProfileStandard Profile = "standard"

	// ProfileFull - Pi 4/5, Jetson Nano and other multi-core ARM/x86 hosts.
	ProfileFull Profile = "full"
)

// ProfileDefaults holds the scheduler tuning recommended for a profile.
type ProfileDefaults struct {
	Name       Profile
	RTPriority int
	MaxMotors  int
}

// GetDefaultProfiles returns the recommended scheduler defaults per profile.
func GetDefaultProfiles() map[Profile]ProfileDefaults {
	return map[Profile]ProfileDefaults{
		ProfileMinimal: {
			Name:       ProfileMinimal,
			RTPriority: 80,
			MaxMotors:  1,
		},
		ProfileStandard: {
			Name:       ProfileStandard,
			RTPriority: 95,
			MaxMotors:  4,
		},
		ProfileFull: {
			Name:       ProfileFull,
			RTPriority: 95,
			MaxMotors:  16,
		},
	}
}

// DetectProfile picks a profile based on core count and architecture.
// A round-robin scheduler thread that visits more motors per tick needs
// more headroom between ticks, so a single-core ARM board gets the
// conservative profile regardless of how much RAM it reports; any other
// host with at most two cores gets the standard profile.
func DetectProfile() Profile {
	isARM := runtime.GOARCH == "arm" || runtime.GOARCH == "arm64"
	cores := runtime.NumCPU()

	if isARM && cores <= 1 {
		return ProfileMinimal
	}
	if cores <= 2 {
		return ProfileStandard
	}
	return ProfileFull
}

// DetectBoard attempts to identify the board type from Linux device-tree
// and vendor release files.
func DetectBoard() string {
	if _, err := os.Stat("/proc/device-tree/model"); err == nil {
		data, err := os.ReadFile("/proc/device-tree/model")
		if err == nil {
			model := string(data)
			switch {
			case contains(model, "Raspberry Pi Zero"):
				return "Pi Zero"
			case contains(model, "Raspberry Pi 3"):
				return "Pi 3"
			case contains(model, "Raspberry Pi 4"):
				return "Pi 4"
			case contains(model, "Raspberry Pi 5"):
				return "Pi 5"
			case contains(model, "Raspberry Pi"):
				return "Raspberry Pi"
			}
		}
	}

	if _, err := os.Stat("/etc/dogtag"); err == nil {
		return "BeagleBone"
	}
	if _, err := os.Stat("/etc/orangepi-release"); err == nil {
		return "Orange Pi"
	}
	if _, err := os.Stat("/etc/nv_tegra_release"); err == nil {
		return "Jetson"
	}

	if runtime.GOOS == "linux" {
		if runtime.GOARCH == "arm64" {
			return "ARM64 Linux"
		} else if runtime.GOARCH == "arm" {
			return "ARM Linux"
		}
		return "Linux"
	}

	return "Unknown"
}

// GetProfileForBoard returns the recommended profile for a board type.
func GetProfileForBoard(board string) Profile {
	switch board {
	case "Pi Zero":
		return ProfileMinimal
	case "Pi 3", "Orange Pi", "BeagleBone":
		return ProfileStandard
	case "Pi 4", "Pi 5", "Jetson":
		return ProfileFull
	default:
		return ProfileStandard
	}
}

// ValidateProfile checks a ProfileDefaults for sane values before it's
// applied to a SchedulerConfig.
func ValidateProfile(p ProfileDefaults) error {
	if p.RTPriority < 0 || p.RTPriority > 99 {
		return fmt.Errorf("rt_priority must be between 0 and 99")
	}
	if p.MaxMotors < 1 {
		return fmt.Errorf("max_motors must be at least 1")
	}
	return nil
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && findSubstring(s, substr)
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
