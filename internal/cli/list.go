package cli

import (
	"fmt"

	"github.com/hearthd/hearth/internal/model"
	"github.com/spf13/cobra"
)

var (
	listOwner  string
	listShared []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage task lists",
}

var listCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new list",
	Args:  cobra.ExactArgs(1),
	RunE:  runListCreate,
}

var listShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all lists and their task counts",
	RunE:  runListShow,
}

func init() {
	listCreateCmd.Flags().StringVar(&listOwner, "owner", "", "List owner")
	listCreateCmd.Flags().StringSliceVar(&listShared, "shared-with", nil, "Users to share the list with")
	listCmd.AddCommand(listCreateCmd)
	listCmd.AddCommand(listShowCmd)
}

func runListCreate(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	l := model.NewList(args[0], listOwner)
	if len(listShared) > 0 {
		l.Visibility = "shared"
		l.SharedWith = listShared
	}
	if err := s.CreateList(l); err != nil {
		return err
	}
	fmt.Printf("Created list %s: %s\n", shortID(l.ID), l.Name)
	return nil
}

func runListShow(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	lists, err := s.Lists()
	if err != nil {
		return err
	}
	for _, l := range lists {
		tasks, err := s.ListItems(l.ID)
		if err != nil {
			return err
		}
		open := 0
		for _, t := range tasks {
			if t.Status != model.StatusCompleted {
				open++
			}
		}
		marker := " "
		if l.IsInbox {
			marker = "*"
		}
		fmt.Printf("%s %s  %-20s %d open / %d total\n", marker, shortID(l.ID), l.Name, open, len(tasks))
	}
	return nil
}
