package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nobodyrpg/nobody/internal/save"
)

// Saves command flags.
var savesDBPath string

// savesCmd is the parent command for save slot management.
var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Inspect and manage save slots",
}

// savesListCmd lists every occupied save slot.
var savesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List save slots",
	Args:  cobra.NoArgs,
	RunE:  runSavesList,
}

// savesDeleteCmd deletes a save slot.
var savesDeleteCmd = &cobra.Command{
	Use:   "delete <slot>",
	Short: "Delete a save slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavesDelete,
}

func init() {
	savesCmd.PersistentFlags().StringVar(&savesDBPath, "db", "saves.db", "path to the save database")

	savesCmd.AddCommand(savesListCmd)
	savesCmd.AddCommand(savesDeleteCmd)
	rootCmd.AddCommand(savesCmd)
}

func runSavesList(_ *cobra.Command, _ []string) error {
	store, err := save.Open(savesDBPath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // read-only listing

	infos, err := store.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no saves found")
		return nil
	}

	slotColor := color.New(color.FgCyan)
	for _, info := range infos {
		fmt.Printf("%s  %s  age %d  v%s  %s\n",
			slotColor.Sprintf("slot %d", info.Slot),
			info.PlayerName, info.PlayerAge, info.Version,
			info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSavesDelete(_ *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[0], err)
	}

	store, err := save.Open(savesDBPath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // delete already reported

	if err := store.Delete(slot); err != nil {
		return err
	}
	fmt.Printf("deleted save in slot %d\n", slot)
	return nil
}
