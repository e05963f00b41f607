//go:build ignore

// build.go - TierVC build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, server, cli, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "tiervc"

type BuildContext struct {
	Verbose bool
	GOOS    string
	GOARCH  string
}

var (
	rootDir string
	distDir string

	// source dir under cmd/ -> output binary name
	executables = map[string]string{
		"tiervc":  "tiervc",
		"tierctl": "tierctl",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s. Run the build from the repository root.", rootDir))
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	goos := flag.String("os", runtime.GOOS, "Target operating system for release builds")
	goarch := flag.String("arch", runtime.GOARCH, "Target architecture for release builds")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{Verbose: *verbose}

	switch *target {
	case "all":
		buildAll(ctx)
	case "server":
		buildExecutable("tiervc", ctx)
	case "cli":
		buildExecutable("tierctl", ctx)
	case "test":
		runTests(ctx.Verbose)
	case "clean":
		clean(ctx.Verbose)
	case "release":
		ctx.GOOS, ctx.GOARCH = *goos, *goarch
		buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "          TierVC - Build System            " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func buildAll(ctx *BuildContext) {
	printInfo("Building all binaries...")

	if err := checkPrerequisites(); err != nil {
		printError(fmt.Sprintf("Prerequisites check failed: %v", err))
		os.Exit(1)
	}
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create dist directory: %v", err))
		os.Exit(1)
	}

	for name := range executables {
		buildExecutable(name, ctx)
	}
	copyConfigFiles(ctx.Verbose)

	printSuccess("All binaries built successfully!")
}

func buildExecutable(name string, ctx *BuildContext) {
	exeName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}
	goos := ctx.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		exeName += ".exe"
	}

	printInfo(fmt.Sprintf("Building %s...", name))

	outputPath := filepath.Join(distDir, exeName)
	ldflags := fmt.Sprintf("-s -w -X %s/pkg/contracts.BuildTime=%s -X %s/pkg/contracts.GitCommit=%s",
		module, time.Now().UTC().Format(time.RFC3339), module, gitCommit())

	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", ldflags, "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Env = os.Environ()
	if ctx.GOOS != "" {
		cmd.Env = append(cmd.Env, "GOOS="+ctx.GOOS)
	}
	if ctx.GOARCH != "" {
		cmd.Env = append(cmd.Env, "GOARCH="+ctx.GOARCH)
	}
	if ctx.Verbose {
		fmt.Printf("Running from %s: go %s\n", rootDir, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		sizeMB := float64(info.Size()) / 1024 / 1024
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, sizeMB))
	}
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func checkPrerequisites() error {
	if _, err := exec.LookPath("go"); err != nil {
		return fmt.Errorf("go toolchain not found in PATH")
	}
	return nil
}

// copyConfigFiles places the example environment file next to the binaries.
func copyConfigFiles(verbose bool) {
	src := filepath.Join(rootDir, ".env.example")
	data, err := os.ReadFile(src)
	if err != nil {
		if verbose {
			printWarning("No .env.example found, skipping")
		}
		return
	}
	if err := os.WriteFile(filepath.Join(distDir, ".env.example"), data, 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to copy .env.example: %v", err))
	}
}

func clean(verbose bool) {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil && !os.IsNotExist(err) {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		return
	}
	if verbose {
		printInfo(fmt.Sprintf("Removed %s", distDir))
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func buildRelease(ctx *BuildContext) {
	printInfo(fmt.Sprintf("Building release for %s/%s...", ctx.GOOS, ctx.GOARCH))
	clean(ctx.Verbose)
	os.Setenv("CGO_ENABLED", "0")
	buildAll(ctx)

	content := fmt.Sprintf("TierVC %s (%s/%s)\nCommit: %s\nBuilt: %s\n",
		"v1.0", ctx.GOOS, ctx.GOARCH, gitCommit(), time.Now().Format("2006-01-02 15:04:05"))
	if err := os.WriteFile(filepath.Join(distDir, "VERSION.txt"), []byte(content), 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to write VERSION.txt: %v", err))
	}
	printSuccess("Release build completed")
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v] [-os=GOOS] [-arch=GOARCH]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all       Build the server and the CLI (default)")
	fmt.Println("  server    Build the tiervc HTTP server")
	fmt.Println("  cli       Build the tierctl command line tool")
	fmt.Println("  test      Run all Go tests with the race detector")
	fmt.Println("  clean     Remove the dist directory")
	fmt.Println("  release   Clean, then build static binaries for -os/-arch")
}
