package pipeline

import (
	"bufio"
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yue/binsizer/internal/sizemodel"
)

// archMachineNames maps an ELF e_machine value to the human-readable
// architecture name the metadata blob records, matching the reference
// tool's own machine-name table.
var archMachineNames = map[elf.Machine]string{
	elf.EM_386:     "ia32",
	elf.EM_X86_64:  "x64",
	elf.EM_ARM:     "arm",
	elf.EM_AARCH64: "arm64",
	elf.EM_MIPS:    "mipsel",
}

// ArchFromElf returns the architecture name for the given ELF file.
func ArchFromElf(path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if name, ok := archMachineNames[f.Machine]; ok {
		return name, nil
	}
	return strings.ToLower(f.Machine.String()), nil
}

// SectionSizesFromElf reads every allocated section's name and size
// directly from the ELF section header table.
func SectionSizesFromElf(path string) (map[string]uint64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sizes := make(map[string]uint64)
	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		sizes[sec.Name] += sec.Size
	}
	return sizes, nil
}

// BuildIdFromElf extracts the hex build ID from a .note.gnu.build-id
// section, if present.
func BuildIdFromElf(path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sec := f.Section(".note.gnu.build-id")
	if sec == nil {
		return "", nil
	}
	data, err := sec.Data()
	if err != nil {
		return "", err
	}
	return parseBuildIDNote(data), nil
}

// parseBuildIDNote strips the ELF note header (namesz, descsz, type,
// name, padding) to recover the raw build-id bytes, hex-encoded.
func parseBuildIDNote(data []byte) string {
	if len(data) < 12 {
		return ""
	}
	nameSize := leUint32(data[0:4])
	descSize := leUint32(data[4:8])
	nameEnd := 12 + align4(nameSize)
	descEnd := nameEnd + descSize
	if int(descEnd) > len(data) {
		return ""
	}
	return toHex(data[nameEnd:descEnd])
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

func toHex(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

// DetectGitRevision runs `git rev-parse HEAD` in repoDir, returning ""
// (not an error) if repoDir is not inside a git checkout.
func DetectGitRevision(repoDir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

var gnArgLineRe = regexp.MustCompile(`^\s*([\w_]+)\s*=\s*(.+?)\s*$`)

// ParseGnArgs reads an output directory's args.gn and returns its
// key=value pairs as a map, tolerating comments (#) and blank lines.
func ParseGnArgs(outputDirectory string) (map[string]string, error) {
	f, err := os.Open(filepath.Join(outputDirectory, "args.gn"))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	args := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := gnArgLineRe.FindStringSubmatch(line); m != nil {
			args[m[1]] = m[2]
		}
	}
	return args, scanner.Err()
}

// CreateMetadata assembles the metadata blob a SizeInfo carries,
// in this order: git revision and gn args (when outputDirectory is
// non-empty), then the tool prefix, then ELF-derived facts and the ELF
// file name (when elfPath is non-empty), then the map file name.
func CreateMetadata(outputDirectory, toolPrefix, elfPath, mapPath string) (map[string]any, error) {
	metadata := make(map[string]any)
	if outputDirectory != "" {
		if rev := DetectGitRevision(outputDirectory); rev != "" {
			metadata[sizemodel.MetadataGitRevision] = rev
		}
		if args, err := ParseGnArgs(outputDirectory); err == nil && len(args) > 0 {
			metadata[sizemodel.MetadataGnArgs] = args
		}
	}
	metadata[sizemodel.MetadataToolPrefix] = toolPrefix

	if elfPath != "" {
		if arch, err := ArchFromElf(elfPath); err == nil {
			metadata[sizemodel.MetadataElfArchitecture] = arch
		}
		if buildID, err := BuildIdFromElf(elfPath); err == nil && buildID != "" {
			metadata[sizemodel.MetadataElfBuildID] = buildID
		}
		if info, err := os.Stat(elfPath); err == nil {
			metadata[sizemodel.MetadataElfMtime] = info.ModTime().Unix()
		}
		metadata[sizemodel.MetadataElfFilename] = elfPath
	}
	if mapPath != "" {
		metadata[sizemodel.MetadataMapFilename] = mapPath
	}
	return metadata, nil
}
