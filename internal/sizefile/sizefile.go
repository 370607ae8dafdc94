// Package sizefile saves and loads a SizeInfo snapshot to/from a
// gzip-compressed JSON document, the project's ".size" file format.
// Loading re-runs the normalize stage against the persisted raw symbol
// list rather than persisting the fully-normalized model, so format
// changes to derived fields never require a new file version.
package sizefile

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"strconv"

	"github.com/yue/binsizer/internal/linkermap"
	"github.com/yue/binsizer/internal/normalize"
	"github.com/yue/binsizer/internal/sizemodel"
	"github.com/yue/binsizer/internal/sizerr"
)

// FormatVersion is bumped whenever the on-disk document shape changes
// incompatibly.
const FormatVersion = 1

// document is the on-disk shape: raw (pre-normalization) symbols plus
// the section sizes and metadata a SizeInfo carries.
type document struct {
	Version         int                 `json:"version"`
	OutputDirectory string              `json:"output_directory"`
	SectionSizes    map[string]uint64   `json:"section_sizes"`
	Metadata        map[string]any      `json:"metadata"`
	RawSymbols      []linkermap.Symbol  `json:"raw_symbols"`
	NmAliasNames    map[string][]string `json:"nm_alias_names"`
}

// Save writes info to path as gzip-compressed JSON. raw is the
// pre-normalization symbol list that produced info.RawSymbols, kept
// alongside so Load can re-normalize it.
func Save(path string, info *sizemodel.SizeInfo, raw []linkermap.Symbol, aliasesByAddress map[uint64][]string, outputDirectory string) error {
	stringKeyed := make(map[string][]string, len(aliasesByAddress))
	for addr, names := range aliasesByAddress {
		stringKeyed[hexKey(addr)] = names
	}

	doc := document{
		Version:         FormatVersion,
		OutputDirectory: outputDirectory,
		SectionSizes:    info.SectionSizes,
		Metadata:        info.Metadata,
		RawSymbols:      raw,
		NmAliasNames:    stringKeyed,
	}

	f, err := os.Create(path)
	if err != nil {
		return sizerr.NewConfigError("creating size file %q: %v", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	enc := json.NewEncoder(gz)
	if err := enc.Encode(doc); err != nil {
		return sizerr.NewIntegrityError("encoding size file %q: %v", path, err)
	}
	return nil
}

// Load reads path and re-runs normalization over its raw symbol list,
// returning a fresh SizeInfo. demangler may be nil to skip
// re-demangling (the persisted names are already final in that case).
func Load(path string, demangler normalize.Demangler) (*sizemodel.SizeInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sizerr.NewConfigError("opening size file %q: %v", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, sizerr.NewIntegrityError("size file %q is not valid gzip: %v", path, err)
	}
	defer gz.Close()

	var doc document
	if err := json.NewDecoder(gz).Decode(&doc); err != nil {
		return nil, sizerr.NewIntegrityError("decoding size file %q: %v", path, err)
	}
	if doc.Version != FormatVersion {
		return nil, sizerr.NewIntegrityError("size file %q has format version %d, expected %d", path, doc.Version, FormatVersion)
	}

	aliasesByAddress := make(map[uint64][]string, len(doc.NmAliasNames))
	for key, names := range doc.NmAliasNames {
		aliasesByAddress[parseHexKey(key)] = names
	}

	symbols, err := normalize.BuildSymbols(doc.RawSymbols, demangler, aliasesByAddress, nil, doc.OutputDirectory, nil)
	if err != nil {
		return nil, err
	}

	info := sizemodel.NewSizeInfo(doc.SectionSizes, symbols)
	info.Metadata = doc.Metadata
	return info, nil
}

func hexKey(addr uint64) string {
	return strconv.FormatUint(addr, 16)
}

func parseHexKey(s string) uint64 {
	v, _ := strconv.ParseUint(s, 16, 64)
	return v
}
