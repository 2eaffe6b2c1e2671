package common

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/crypto/blake2b"
)

const (
	// DefaultConfigPath is where every check looks when no path is given.
	DefaultConfigPath = "config/config.json"

	AppName = "novacore"
)

// Built-in verification material. A config may override any of them under "keys".
const (
	PK     = "9w6xx3mXk1qDqQ0v0cH0a3pN8m0yC7Hk3h3Q0l0ZrbE"
	AESKey = "Vd0Qn2R7pS0cXkq9ZK0w1XfE8a0n8G3rJqP5l2YtUeM"
	AAD    = "novacore|license|v1"
)

/******** Exit codes ********/
const (
	ExitOK       = 0
	ExitFailure  = 1 // error or license mismatch
	ExitUsage    = 2 // bad command line
	MismatchExit = ExitFailure
)

func IsDesktop() bool { // Win/macOS are treated as dev machines
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// ResolveConfigPath returns p, or DefaultConfigPath when p is blank.
func ResolveConfigPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return DefaultConfigPath
	}
	return p
}

// ReadPEMorFile returns s itself when it already holds PEM text, else reads it as a path.
func ReadPEMorFile(s string) ([]byte, error) {
	if strings.Contains(s, "-----BEGIN ") {
		return []byte(s), nil
	}
	return os.ReadFile(filepath.Clean(s))
}

// ParseGuardList splits a comma separated host/wildcard list; blank disables the guard.
func ParseGuardList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchAnyHostPattern supports exact names and "*.example.com".
func MatchAnyHostPattern(host string, patterns []string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, pat := range patterns {
		if wildcardMatch(host, pat) {
			return true
		}
	}
	return false
}

func wildcardMatch(host, pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return host == pattern
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := strings.TrimPrefix(pattern, "*.")
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
	return host == pattern
}

/******** Machine identity ********/

// StableMachineID returns the most stable device identifier available:
// Linux product_uuid, macOS IOPlatformUUID, Windows MachineGuid, then gopsutil HostID.
func StableMachineID() (string, error) {
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.Trim(s, "{}")
		s = strings.ReplaceAll(s, "-", "")
		s = strings.ReplaceAll(s, ":", "")
		return strings.ToUpper(s)
	}

	if id, err := platformMachineID(); err == nil && id != "" {
		return norm(id), nil
	}
	id, err := host.HostID()
	if err != nil {
		return "", fmt.Errorf("machine id: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("machine id: empty host id")
	}
	return norm(id), nil
}

func platformMachineID() (string, error) {
	switch runtime.GOOS {
	case "linux":
		paths := []string{
			"/sys/class/dmi/id/product_uuid",
			"/sys/devices/virtual/dmi/id/product_uuid",
			"/etc/machine-id",
		}
		for _, p := range paths {
			if b, err := os.ReadFile(p); err == nil {
				v := strings.TrimSpace(string(b))
				if v != "" && v != "unknown" && v != "None" {
					return v, nil
				}
			}
		}
		return "", fmt.Errorf("no product_uuid")

	case "darwin":
		out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
		if err != nil {
			return "", fmt.Errorf("ioreg: %w", err)
		}
		m := regexp.MustCompile(`"IOPlatformUUID"\s*=\s*"([^"]+)"`).FindSubmatch(out)
		if len(m) != 2 {
			return "", fmt.Errorf("IOPlatformUUID not found")
		}
		return string(m[1]), nil

	case "windows":
		out, err := exec.Command("reg", "query", `HKLM\SOFTWARE\Microsoft\Cryptography`, "/v", "MachineGuid").Output()
		if err != nil {
			return "", fmt.Errorf("reg query: %w", err)
		}
		m := regexp.MustCompile(`MachineGuid\s+REG_SZ\s+([A-Fa-f0-9-]+)`).FindSubmatch(out)
		if len(m) != 2 {
			return "", fmt.Errorf("MachineGuid not found")
		}
		return string(m[1]), nil

	default:
		return "", fmt.Errorf("unsupported os: %s", runtime.GOOS)
	}
}

// MachineCode is what licenses bind to: blake2b-128 of the stable id, upper hex.
func MachineCode() (string, error) {
	id, err := StableMachineID()
	if err != nil {
		return "", err
	}
	return MachineCodeOf(id)
}

func MachineCodeOf(id string) (string, error) {
	h, err := blake2b.New(16, nil)
	if err != nil {
		return "", err
	}
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(id))))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}
