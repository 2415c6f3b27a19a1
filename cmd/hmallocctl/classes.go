package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/format"
)

var classesSlabPages int

func init() {
	cmd := newClassesCmd()
	cmd.Flags().IntVar(&classesSlabPages, "slab-pages", 1, "Page units per slab")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "Show the size-class table",
		Long: `The classes command prints every size class with the range of request
sizes it serves and how many chunks one slab yields.

Example:
  hmallocctl classes
  hmallocctl classes --slab-pages 4 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
}

type classTable struct {
	PageUnit       int               `json:"page_unit"`
	HeaderSize     int               `json:"header_size"`
	LargeThreshold int               `json:"large_threshold"`
	SlabPages      int               `json:"slab_pages"`
	Classes        []alloc.ClassInfo `json:"classes"`
}

func runClasses() error {
	table := classTable{
		PageUnit:       format.PageUnit,
		HeaderSize:     format.HeaderSize,
		LargeThreshold: format.LargeThreshold,
		SlabPages:      max(classesSlabPages, 1),
		Classes:        alloc.Classes(classesSlabPages),
	}
	if jsonOut {
		return printJSON(table)
	}

	rows := make([][]string, 0, len(table.Classes)+1)
	for _, c := range table.Classes {
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			strconv.Itoa(c.ChunkSize),
			strconv.Itoa(c.MinRequest) + "-" + strconv.Itoa(c.MaxRequest),
			strconv.Itoa(c.ChunksPerSlab),
		})
	}
	rows = append(rows, []string{"large", "pages", ">=" + strconv.Itoa(format.LargeThreshold), "-"})

	printInfo("%s\n\n", style(titleStyle).Render("Size Classes"))
	printInfo("%s", renderTable([]string{"Class", "Chunk", "Request bytes", "Per slab"}, rows))
	printVerbose("\nHeader: %d bytes, page unit: %d bytes, slab: %d page(s)\n",
		table.HeaderSize, table.PageUnit, table.SlabPages)
	return nil
}
