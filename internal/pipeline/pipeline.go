// Package pipeline orchestrates a full archive run: resolve paths,
// parse the linker map, collect nm alias/name data, parse the ninja
// graph, normalize symbols, and assemble the resulting SizeInfo. The nm
// alias collection and ninja parse run concurrently (goroutines over
// internal/futures) since neither depends on the other's output; both
// must finish before normalization (which needs both) can start.
//
// Suspension points: Run waits for the nm stage first and then for
// the ninja stage. An nm error is returned at once and the ninja
// result is discarded; otherwise a ninja error is returned. A
// SIGINT/SIGTERM during either stage is
// handled by futures.InstallTeardownHook, which logs how many workers
// were still active and exits without partial output.
package pipeline

import (
	"github.com/yue/binsizer/internal/buildpaths"
	"github.com/yue/binsizer/internal/futures"
	"github.com/yue/binsizer/internal/linkermap"
	"github.com/yue/binsizer/internal/ninja"
	"github.com/yue/binsizer/internal/nmtool"
	"github.com/yue/binsizer/internal/normalize"
	"github.com/yue/binsizer/internal/sizemodel"
	"github.com/yue/binsizer/internal/sizerr"
)

// ArchiveOptions are the inputs an archive run needs, corresponding to
// cmd/archive's flags.
type ArchiveOptions struct {
	MapFile         string
	ElfFile         string
	OutputDirectory string
	ToolPrefix      string
	Demangle        bool
}

// Result is a completed archive run: the resulting SizeInfo, the raw
// linker-map symbols and nm alias names it was built from, and a
// coverage report. Diagnostics are recorded on the caller's diag.
type Result struct {
	SizeInfo *sizemodel.SizeInfo
	RawRead  []linkermap.Symbol
	NmAlias  map[uint64][]string
	Coverage CoverageReport
}

// CoverageReport tallies how completely symbols were attributed back
// to source, the Go equivalent of describe.py's coverage statistics -
// a DataGap-kind figure, always logged, never fatal.
type CoverageReport struct {
	TotalSymbols     int
	WithSourcePath   int
	WithObjectPath   int
	UnmatchedObjects int
}

func (c CoverageReport) SourceCoverageRatio() float64 {
	if c.TotalSymbols == 0 {
		return 1
	}
	return float64(c.WithSourcePath) / float64(c.TotalSymbols)
}

// Run executes a full archive pipeline for opts, returning the
// resulting Result or an abort-class error (ConfigError/IntegrityError
// /ToolFailure) if the linker map is unreadable, the tool prefix
// doesn't resolve, or nm/c++filt fail outright. An output directory
// that doesn't resolve is not fatal: source attribution stays empty.
// Non-fatal issues (a ninja source lookup miss, a too-thin alias
// group) are recorded on diag and never abort the run.
func Run(opts ArchiveOptions, diag *sizerr.Diagnostics) (*Result, error) {
	mapResult, err := linkermap.ParseFile(opts.MapFile)
	if err != nil {
		return nil, err
	}

	resolver := buildpaths.New(opts.OutputDirectory, opts.ToolPrefix)

	nmFuture := futures.RunAsync(func() (map[uint64][]nmtool.NmSymbol, error) {
		if opts.ElfFile == "" {
			return nil, nil
		}
		toolPrefix, err := resolver.ResolveToolPrefix()
		if err != nil {
			return nil, err
		}
		return nmtool.CollectAliasesByAddress(nmtool.ExecRunner{}, toolPrefix, opts.ElfFile)
	})

	ninjaFuture := futures.RunAsync(func() (*ninja.SourceMapper, error) {
		outDir, err := resolver.ResolveOutputDirectory()
		if err != nil {
			// No ninja graph is a coverage gap, not fatal: source
			// attribution simply stays empty.
			return nil, nil
		}
		return ninja.Parse(outDir)
	})

	nmAliases, err := nmFuture.Get()
	if err != nil {
		return nil, err
	}
	sourceMapper, err := ninjaFuture.Get()
	if err != nil {
		return nil, err
	}

	nmAliasNames := make(map[uint64][]string, len(nmAliases))
	for addr, syms := range nmAliases {
		names := make([]string, len(syms))
		for i, s := range syms {
			names[i] = s.Name
		}
		nmAliasNames[addr] = names
	}

	var demangler normalize.Demangler
	if opts.Demangle {
		toolPrefix, err := resolver.ResolveToolPrefix()
		if err != nil {
			return nil, err
		}
		demangler = normalize.CxxFiltDemangler{ToolPrefix: toolPrefix}
	}

	outputDirectory, _ := resolver.ResolveOutputDirectory()

	symbols, err := normalize.BuildSymbols(mapResult.Symbols, demangler, nmAliasNames, sourceMapper, outputDirectory, diag)
	if err != nil {
		return nil, err
	}

	sectionSizes := make(map[string]uint64, len(mapResult.Sections))
	for _, sec := range mapResult.Sections {
		sectionSizes[sec.Name] += sec.Size
	}
	if opts.ElfFile != "" {
		elfSizes, err := SectionSizesFromElf(opts.ElfFile)
		if err == nil {
			if err := verifySectionSizesAgree(sectionSizes, elfSizes); err != nil {
				return nil, err
			}
		}
	}

	metadata, err := CreateMetadata(outputDirectory, opts.ToolPrefix, opts.ElfFile, opts.MapFile)
	if err != nil {
		return nil, err
	}

	info := sizemodel.NewSizeInfo(sectionSizes, symbols)
	info.Metadata = metadata

	coverage := buildCoverageReport(symbols, sourceMapper)

	return &Result{
		SizeInfo: info,
		RawRead:  mapResult.Symbols,
		NmAlias:  nmAliasNames,
		Coverage: coverage,
	}, nil
}

// verifySectionSizesAgree enforces the "guessing past a map/ELF
// section-size disagreement is fatal" non-goal: any section present
// in both that disagrees on size aborts the run with an IntegrityError
// rather than silently trusting one source.
func verifySectionSizesAgree(fromMap, fromElf map[string]uint64) error {
	for name, elfSize := range fromElf {
		mapSize, ok := fromMap[name]
		if !ok {
			continue
		}
		if mapSize != elfSize {
			return sizerr.NewIntegrityError("section %q size disagreement: linker map says %d, ELF says %d", name, mapSize, elfSize)
		}
	}
	return nil
}

func buildCoverageReport(symbols []*sizemodel.Symbol, mapper *ninja.SourceMapper) CoverageReport {
	report := CoverageReport{TotalSymbols: len(symbols)}
	for _, s := range symbols {
		if s.SourcePath != "" {
			report.WithSourcePath++
		}
		if s.ObjectPath != "" {
			report.WithObjectPath++
		}
	}
	if mapper != nil {
		report.UnmatchedObjects = mapper.UnmatchedCount()
	}
	return report
}
