package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillserve/pkg/presenter"
	"github.com/jingkaihe/skillserve/pkg/provider"
	"github.com/jingkaihe/skillserve/pkg/skill"
)

var validateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate a skills directory tree offline",
	Long: `Check every skill directory under <dir> against the same rules the
server enforces: frontmatter shape, skill-name grammar, and file-path
safety. Exits non-zero when any skill fails validation.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if !runValidate(args[0]) {
			os.Exit(1)
		}
	},
}

func runValidate(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		presenter.Error(err, "failed to read skills directory")
		return false
	}

	valid := 0
	failed := 0
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())

		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		sk, err := provider.LoadSkillDir(dir)
		if err != nil {
			presenter.Error(err, entry.Name())
			failed++
			continue
		}

		if !skill.ValidName(entry.Name()) {
			presenter.Warning(fmt.Sprintf("%s: directory name fails the skill-name grammar", entry.Name()))
		} else if sk.Name != entry.Name() {
			presenter.Warning(fmt.Sprintf("%s: frontmatter names the skill %q", entry.Name(), sk.Name))
		}

		presenter.Success(fmt.Sprintf("%s (%d files)", sk.Name, len(sk.Files)))
		valid++
	}

	if failed > 0 {
		presenter.Error(nil, fmt.Sprintf("%d of %d skills failed validation", failed, valid+failed))
		return false
	}
	presenter.Info(fmt.Sprintf("%d skills validated", valid))
	return true
}
