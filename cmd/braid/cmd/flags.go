package cmd

import (
	"context"
	"fmt"

	"github.com/oneconcern/braid/pkg/core"
	"github.com/oneconcern/braid/pkg/dlogger"
	"github.com/oneconcern/braid/pkg/gitbranch"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/store"
	"github.com/oneconcern/braid/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type flagsT struct {
	record struct {
		Title        string
		Status       string
		Body         string
		Labels       []string
		Dependencies []string
		Hash         string
	}
	list struct {
		Kind   string
		Status string
		Label  string
	}
	reorder struct {
		Position int
	}
	merge struct {
		GitDir string
	}
	root struct {
		repoDir  string
		logLevel string
	}
}

var params flagsT

func addRepoDirFlag(cmd *cobra.Command) string {
	dir := "dir"
	cmd.PersistentFlags().StringVar(&params.root.repoDir, dir, "", "Directory holding the record files (default \".braid\")")
	return dir
}

func addLogLevelFlag(cmd *cobra.Command) string {
	loglevel := "loglevel"
	cmd.PersistentFlags().StringVar(&params.root.logLevel, loglevel, "", fmt.Sprintf("The logging level. Levels by increasing order of verbosity: %v", dlogger.LogLevels()))
	return loglevel
}

func addTitleFlag(cmd *cobra.Command) string {
	title := "title"
	cmd.Flags().StringVar(&params.record.Title, title, "", "Title of the record")
	return title
}

func addStatusFlag(cmd *cobra.Command) string {
	status := "status"
	cmd.Flags().StringVar(&params.record.Status, status, "", "Status of the record")
	return status
}

func addBodyFlag(cmd *cobra.Command) string {
	body := "body"
	cmd.Flags().StringVar(&params.record.Body, body, "", "Free form body of the record")
	return body
}

func addLabelsFlag(cmd *cobra.Command) string {
	labels := "label"
	cmd.Flags().StringSliceVar(&params.record.Labels, labels, nil, "Labels attached to the record (repeatable)")
	return labels
}

func addDependenciesFlag(cmd *cobra.Command) string {
	deps := "depends-on"
	cmd.Flags().StringSliceVar(&params.record.Dependencies, deps, nil, "Record ids this task depends on (repeatable)")
	return deps
}

func addHashFlag(cmd *cobra.Command) string {
	hash := "hash"
	cmd.Flags().StringVar(&params.record.Hash, hash, "", "Content hash the update is based on, for conflict detection")
	return hash
}

func addKindFilterFlag(cmd *cobra.Command) string {
	kind := "kind"
	cmd.Flags().StringVar(&params.list.Kind, kind, "", "Only list records of this kind (task, doc, decision)")
	return kind
}

func addStatusFilterFlag(cmd *cobra.Command) string {
	status := "status"
	cmd.Flags().StringVar(&params.list.Status, status, "", "Only list records with this status")
	return status
}

func addLabelFilterFlag(cmd *cobra.Command) string {
	label := "label"
	cmd.Flags().StringVar(&params.list.Label, label, "", "Only list records carrying this label")
	return label
}

func addPositionFlag(cmd *cobra.Command) string {
	position := "position"
	cmd.Flags().IntVar(&params.reorder.Position, position, 0, "Target position within the task's layer, starting at 0")
	return position
}

func addGitDirFlag(cmd *cobra.Command) string {
	gitDir := "git-dir"
	cmd.Flags().StringVar(&params.merge.GitDir, gitDir, ".", "Path to the git repository holding the branch to merge")
	return gitDir
}

// kindOf maps a command line kind argument, accepting the short id prefix
// "doc" as an alias for "document"
func kindOf(arg string) model.Kind {
	if arg == "doc" {
		return model.KindDocument
	}
	return model.Kind(arg)
}

// paramsToCore builds the record tracking core from global flags
func paramsToCore(ctx context.Context) (*core.Core, error) {
	logger, err := dlogger.GetLogger(params.root.logLevel)
	if err != nil {
		return nil, err
	}
	backend, err := localfs.New(afero.NewBasePathFs(afero.NewOsFs(), params.root.repoDir))
	if err != nil {
		return nil, err
	}
	s, err := store.New(store.Backend(backend), store.Logger(logger))
	if err != nil {
		return nil, err
	}
	provider := gitbranch.New(params.merge.GitDir,
		gitbranch.RecordsDir(params.root.repoDir+"/records"),
		gitbranch.Logger(logger),
	)
	return core.New(ctx,
		core.RecordStore(s),
		core.BranchProvider(provider),
		core.Logger(logger),
	)
}
