package main

import (
	collegestore "github.com/dalemusser/hackreg/internal/app/store/colleges"
	"github.com/dalemusser/hackreg/internal/app/system/collegeseed"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/spf13/cobra"
)

func init() {
	collegesCmd.AddCommand(collegesImportCmd)
	collegesCmd.AddCommand(collegesListCmd)
	collegesListCmd.Flags().StringVar(&listSearch, "search", "", "Only list names containing this text")
	collegesListCmd.Flags().Int64Var(&listLimit, "limit", 0, "Maximum rows (0 lists all)")
	rootCmd.AddCommand(collegesCmd)
}

var (
	listSearch string
	listLimit  int64
)

var collegesCmd = &cobra.Command{
	Use:   "colleges",
	Short: "Manage the college directory",
}

var collegesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import colleges from a YAML file",
	Long: `Import colleges from a YAML file, either a bare list of names or a
document with a "colleges:" key. Names already in the directory (ignoring
case) are skipped, so the same file can be imported repeatedly.

Example:
  hackregctl colleges import seeds/colleges.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runCollegesImport,
}

var collegesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List colleges in name order",
	Args:  cobra.NoArgs,
	RunE:  runCollegesList,
}

func runCollegesImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	names, err := collegeseed.Load(path)
	if err != nil {
		return err
	}

	ctx, cancel := timeouts.WithTimeout(cmd.Context(), timeouts.Batch(), newLogger(), "college import")
	defer cancel()

	db, closeDB, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	res, err := collegestore.New(db).Import(ctx, names)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if humanOutput {
		outputHuman(out, "Imported %d of %d colleges from %s (%d skipped)\n", res.Inserted, len(names), path, res.Skipped)
		return nil
	}
	return outputJSON(out, ImportResponse{File: path, Read: len(names), Inserted: res.Inserted, Skipped: res.Skipped})
}

func runCollegesList(cmd *cobra.Command, args []string) error {
	ctx, cancel := timeouts.WithTimeout(cmd.Context(), timeouts.Medium(), newLogger(), "college list")
	defer cancel()

	db, closeDB, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	found, err := collegestore.New(db).Search(ctx, listSearch, listLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if humanOutput {
		for _, c := range found {
			outputHuman(out, "%s  %s\n", c.ID.Hex(), c.Name)
		}
		outputHuman(out, "%d colleges\n", len(found))
		return nil
	}

	resp := ListResponse{Colleges: make([]CollegeEntry, 0, len(found)), Total: len(found)}
	for _, c := range found {
		resp.Colleges = append(resp.Colleges, CollegeEntry{ID: c.ID.Hex(), Name: c.Name})
	}
	return outputJSON(out, resp)
}
