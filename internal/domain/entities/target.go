// Package entities defines core domain models and data structures.
package entities

import "strings"

// TargetTriple identifies a CPU architecture, OS and ABI/libc, e.g. "x86_64-unknown-linux-gnu"
type TargetTriple string

// Well-known targets referenced by the platform compatibility rules
const (
	TargetX64LinuxGNU        TargetTriple = "x86_64-unknown-linux-gnu"
	TargetX64LinuxMusl       TargetTriple = "x86_64-unknown-linux-musl"
	TargetARM64LinuxGNU      TargetTriple = "aarch64-unknown-linux-gnu"
	TargetARM64LinuxMusl     TargetTriple = "aarch64-unknown-linux-musl"
	TargetARMv7LinuxGNUEABI  TargetTriple = "armv7-unknown-linux-gnueabihf"
	TargetARMv7LinuxMuslEABI TargetTriple = "armv7-unknown-linux-musleabihf"
	TargetX64MacOS           TargetTriple = "x86_64-apple-darwin"
	TargetARM64MacOS         TargetTriple = "aarch64-apple-darwin"
	TargetUniversal2MacOS    TargetTriple = "universal2-apple-darwin"
	TargetX64WindowsMSVC     TargetTriple = "x86_64-pc-windows-msvc"
	TargetX86WindowsMSVC     TargetTriple = "i686-pc-windows-msvc"
	TargetARM64WindowsMSVC   TargetTriple = "aarch64-pc-windows-msvc"
	TargetX64WindowsGNU      TargetTriple = "x86_64-pc-windows-gnu"
	TargetX86WindowsGNU      TargetTriple = "i686-pc-windows-gnu"
	TargetARM64WindowsGNU    TargetTriple = "aarch64-pc-windows-gnu"
)

// KnownTargets lists the targets the planner has explicit rules for
var KnownTargets = []TargetTriple{
	TargetX64LinuxGNU,
	TargetX64LinuxMusl,
	TargetARM64LinuxGNU,
	TargetARM64LinuxMusl,
	TargetARMv7LinuxGNUEABI,
	TargetARMv7LinuxMuslEABI,
	TargetX64MacOS,
	TargetARM64MacOS,
	TargetUniversal2MacOS,
	TargetX64WindowsMSVC,
	TargetX86WindowsMSVC,
	TargetARM64WindowsMSVC,
	TargetX64WindowsGNU,
	TargetX86WindowsGNU,
	TargetARM64WindowsGNU,
}

func (t TargetTriple) String() string {
	return string(t)
}

// Arch returns the architecture component (everything before the first dash)
func (t TargetTriple) Arch() string {
	arch, _, _ := strings.Cut(string(t), "-")
	return arch
}

// OS returns a coarse operating system family: "windows", "macos", "linux" or "unknown"
func (t TargetTriple) OS() string {
	switch {
	case t.IsWindows():
		return "windows"
	case t.IsDarwin():
		return "macos"
	case t.IsLinux():
		return "linux"
	default:
		return "unknown"
	}
}

// IsWindows reports whether the target is any windows ABI
func (t TargetTriple) IsWindows() bool {
	return strings.Contains(string(t), "windows")
}

// IsWindowsMSVC reports whether the target uses the msvc ABI
func (t TargetTriple) IsWindowsMSVC() bool {
	return strings.Contains(string(t), "windows-msvc")
}

// IsDarwin reports whether the target is an Apple macOS target
func (t TargetTriple) IsDarwin() bool {
	return strings.Contains(string(t), "apple-darwin")
}

// IsLinux reports whether the target is a Linux target
func (t TargetTriple) IsLinux() bool {
	return strings.Contains(string(t), "linux")
}

// IsLinuxGNU reports whether the target links glibc
func (t TargetTriple) IsLinuxGNU() bool {
	return strings.Contains(string(t), "linux-gnu")
}

// IsMusl reports whether the target links musl (static or dynamic)
func (t TargetTriple) IsMusl() bool {
	return strings.Contains(string(t), "linux-musl")
}
