package bridge

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// resolver locates a binary: explicit path, then each search dir, then PATH
type resolver struct {
	dirs     []string
	goos     string
	goarch   string
	stat     func(string) (os.FileInfo, error)
	lookPath func(string) (string, error)
	archOf   func(string) (string, error)
}

func newResolver(dirs []string) *resolver {
	return &resolver{
		dirs:     dirs,
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
		stat:     os.Stat,
		lookPath: exec.LookPath,
		archOf:   binaryArch,
	}
}

func (r *resolver) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty binary name", ErrBinaryNotFound)
	}
	file := name
	if r.goos == "windows" && filepath.Ext(file) == "" {
		file += ".exe"
	}

	var path string
	switch {
	case strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/'):
		if !r.isFile(file) {
			return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, file)
		}
		path = file
	default:
		path = r.search(file)
		if path == "" {
			found, err := r.lookPath(file)
			if err != nil {
				return "", fmt.Errorf("%w: %s (searched %s and PATH)", ErrBinaryNotFound, file, strings.Join(r.dirs, ", "))
			}
			path = found
		}
	}

	if err := r.verifyArch(path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *resolver) search(file string) string {
	platform := r.goos + "-" + r.goarch
	for _, dir := range r.dirs {
		if dir == "" {
			continue
		}
		for _, candidate := range []string{
			filepath.Join(dir, "bin", platform, file),
			filepath.Join(dir, "bin", file),
			filepath.Join(dir, file),
		} {
			if r.isFile(candidate) {
				return candidate
			}
		}
	}
	return ""
}

func (r *resolver) isFile(path string) bool {
	info, err := r.stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *resolver) verifyArch(path string) error {
	arch, err := r.archOf(path)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	if arch == "" || arch == r.goarch {
		return nil
	}
	return fmt.Errorf("%w: %s is built for %s but this process runs on %s", ErrArchMismatch, path, arch, r.goarch)
}

// binaryArch returns the GOARCH name a native executable targets.
// Non-native files (scripts, wrappers) and unknown machines yield "".
func binaryArch(path string) (string, error) {
	if f, err := elf.Open(path); err == nil {
		defer f.Close()
		return elfArch[f.Machine], nil
	}
	if f, err := macho.Open(path); err == nil {
		defer f.Close()
		return machoArch[f.Cpu], nil
	}
	if f, err := macho.OpenFat(path); err == nil {
		defer f.Close()
		for _, a := range f.Arches {
			if machoArch[a.Cpu] == runtime.GOARCH {
				return runtime.GOARCH, nil
			}
		}
		if len(f.Arches) > 0 {
			return machoArch[f.Arches[0].Cpu], nil
		}
		return "", nil
	}
	if f, err := pe.Open(path); err == nil {
		defer f.Close()
		return peArch[f.Machine], nil
	}
	return "", nil
}

var elfArch = map[elf.Machine]string{
	elf.EM_X86_64:  "amd64",
	elf.EM_AARCH64: "arm64",
	elf.EM_386:     "386",
	elf.EM_ARM:     "arm",
}

var machoArch = map[macho.Cpu]string{
	macho.CpuAmd64: "amd64",
	macho.CpuArm64: "arm64",
	macho.Cpu386:   "386",
	macho.CpuArm:   "arm",
}

var peArch = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_AMD64: "amd64",
	pe.IMAGE_FILE_MACHINE_ARM64: "arm64",
	pe.IMAGE_FILE_MACHINE_I386:  "386",
}
