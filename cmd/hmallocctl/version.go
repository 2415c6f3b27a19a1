package main

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hmallocctl %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		fmt.Printf("  go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if verbose {
			fmt.Printf("  cpu: %s\n", cpuBanner())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// cpuBanner describes the host CPU for benchmark reports.
func cpuBanner() string {
	return fmt.Sprintf("%s (vendor=%s logical=%d physical=%d cacheline=%d vm=%t)",
		cpuid.CPU.BrandName,
		cpuid.CPU.VendorString,
		cpuid.CPU.LogicalCores,
		cpuid.CPU.PhysicalCores,
		cpuid.CPU.CacheLine,
		cpuid.CPU.VM())
}
