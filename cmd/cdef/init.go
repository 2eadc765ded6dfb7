package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cdef/internal/project"
)

const exampleData = `# one number per token; whitespace, ',' and ';' separate values
1.0 0.5 0.25 0.125
0.0625, 0.03125
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path|name]",
		Short: "Initialize a new cdef project",
		Long: `Initialize a new cdef project by creating a manifest (cdef.toml) and a
sample data file (data/example.txt). If [path|name] is omitted, initializes the
current directory. A non-existing directory is created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

// runInit creates cdef.toml and data/example.txt in the target directory.
// It refuses to overwrite an existing manifest.
func runInit(cmd *cobra.Command, args []string) error {
	target, err := initTarget(args)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}

	name := projectName(filepath.Base(target))
	if err := os.WriteFile(manifestPath, []byte(project.DefaultManifest(name)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", manifestPath, err)
	}

	created := []string{manifestPath}
	dataPath := filepath.Join(target, "data", "example.txt")
	if _, err := os.Stat(dataPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := os.WriteFile(dataPath, []byte(exampleData), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dataPath, err)
		}
		created = append(created, dataPath)
	}

	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initialized cdef project %q\n", name)
		for _, p := range created {
			fmt.Fprintf(out, "  created %s\n", p)
		}
	}
	return nil
}

func initTarget(args []string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if len(args) == 0 || args[0] == "." {
		return wd, nil
	}
	if filepath.IsAbs(args[0]) {
		return args[0], nil
	}
	return filepath.Join(wd, args[0]), nil
}

// projectName keeps letters, digits, '-' and '_' so the name is safe inside
// the TOML template and as an output file name.
func projectName(base string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "cdef-project"
	}
	return name
}
