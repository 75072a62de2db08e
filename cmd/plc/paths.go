package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plc/interpreter-go/pkg/driver"
)

// entryPoint is the program a command operates on plus the manifest
// settings that apply to it.
type entryPoint struct {
	program  driver.Program
	display  string
	builtins []string
}

func resolveEntry(ctx context.Context, args []string, home string, mode executionMode) (entryPoint, error) {
	label := modeCommandLabel(mode)
	if len(args) > 1 {
		return entryPoint{}, fmt.Errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
	}

	manifestPath, manifest, manifestErr := loadManifestFrom(".")
	// brokenManifest is skipped when looking up the file's own project.
	brokenManifest := ""
	if manifestErr != nil {
		switch {
		case errors.Is(manifestErr, driver.ErrManifestNotFound):
			manifest = nil
		case len(args) == 1 && looksLikePathCandidate(args[0]):
			fmt.Fprintf(os.Stderr, "warning: unable to load manifest (%v); falling back to direct file execution\n", manifestErr)
			manifest = nil
			brokenManifest = manifestPath
		default:
			return entryPoint{}, fmt.Errorf("failed to load manifest: %w", manifestErr)
		}
	}

	if len(args) == 0 {
		if manifest == nil {
			return entryPoint{}, fmt.Errorf("%s requires a manifest target or source file (package.yml not found)", label)
		}
		target, err := manifest.DefaultTarget()
		if err != nil {
			return entryPoint{}, fmt.Errorf("manifest error: %w", err)
		}
		return loadTarget(ctx, manifest, target, home)
	}

	candidate := args[0]
	if manifest != nil && !looksLikePathCandidate(candidate) {
		if target, ok := manifest.FindTarget(candidate); ok {
			return loadTarget(ctx, manifest, target, home)
		}
	}

	prog, err := driver.ReadProgram(candidate)
	if err != nil {
		if manifest != nil && !looksLikePathCandidate(candidate) {
			return entryPoint{}, fmt.Errorf("%q is neither a target in %s nor a readable file", candidate, manifest.Path)
		}
		return entryPoint{}, err
	}

	// A file still picks up the builtins of the project it lives in.
	fileManifest := manifest
	if filePath, findErr := driver.FindManifest(filepath.Dir(prog.Path)); findErr == nil {
		switch {
		case brokenManifest != "" && filepath.Clean(brokenManifest) == filepath.Clean(filePath):
			fileManifest = nil
		case fileManifest == nil || filepath.Clean(fileManifest.Path) != filepath.Clean(filePath):
			m, loadErr := driver.LoadManifest(filePath)
			if loadErr != nil {
				return entryPoint{}, fmt.Errorf("failed to read manifest for %s: %w", candidate, loadErr)
			}
			fileManifest = m
		}
	} else if errors.Is(findErr, driver.ErrManifestNotFound) {
		fileManifest = nil
	} else {
		return entryPoint{}, fmt.Errorf("failed to locate manifest for %s: %w", candidate, findErr)
	}

	entry := entryPoint{program: prog, display: displayPath(prog.Path)}
	if fileManifest != nil {
		entry.builtins = fileManifest.Builtins
	}
	return entry, nil
}

func loadTarget(ctx context.Context, manifest *driver.Manifest, target *driver.TargetSpec, home string) (entryPoint, error) {
	entry := entryPoint{builtins: manifest.Builtins}
	if target.Git != nil {
		source := driver.GitSource{CacheDir: filepath.Join(home, "cache")}
		prog, err := source.Read(ctx, *target.Git, target.Main)
		if err != nil {
			return entryPoint{}, fmt.Errorf("failed to fetch target %q: %w", target.OriginalName, err)
		}
		entry.program = prog
		entry.display = prog.Path
		return entry, nil
	}

	mainPath, err := manifest.MainPath(target)
	if err != nil {
		return entryPoint{}, fmt.Errorf("failed to resolve target entrypoint: %w", err)
	}
	prog, err := driver.ReadProgram(mainPath)
	if err != nil {
		return entryPoint{}, fmt.Errorf("failed to read target %q: %w", target.OriginalName, err)
	}
	entry.program = prog
	entry.display = displayPath(prog.Path)
	return entry, nil
}

// loadManifestFrom also returns the path it found so callers can tell which
// file failed to load.
func loadManifestFrom(start string) (string, *driver.Manifest, error) {
	manifestPath, err := driver.FindManifest(start)
	if err != nil {
		return "", nil, err
	}
	manifest, err := driver.LoadManifest(manifestPath)
	return manifestPath, manifest, err
}

// displayPath shortens path relative to the working directory when it
// lives below it.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func looksLikePathCandidate(arg string) bool {
	if arg == "" {
		return false
	}
	if strings.Contains(arg, string(os.PathSeparator)) {
		return true
	}
	if strings.Contains(arg, "/") || strings.Contains(arg, "\\") {
		return true
	}
	if filepath.Ext(arg) == ".plc" {
		return true
	}
	return strings.HasPrefix(arg, ".")
}
