package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked packages",
		Long: `Show tracked packages as a table, newest first. Archived packages are
hidden unless --all or --archived asks for them.`,
		RunE: runList,
	}

	cmd.Flags().Bool("all", false, "Include archived packages")
	cmd.Flags().Bool("archived", false, "Show only archived packages")
	cmd.Flags().String("carrier", "", "Filter by carrier")
	cmd.Flags().String("status", "", "Filter by status (pending, in_transit, out_for_delivery, delivered, returned, exception)")
	cmd.Flags().String("search", "", "Filter by number, label, or origin")
	cmd.Flags().Int("limit", 0, "Limit the number of rows")
	cmd.Flags().Bool("json", false, "Print entries as JSON")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, archivedOnly, err := listFilter(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListEntries(ctx, filter)
	if err != nil {
		return err
	}
	if archivedOnly {
		entries = lo.Filter(entries, func(e model.Entry, _ int) bool { return e.Archived })
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println(cli.FormatInfo("No packages to show. Track one with `trackhub add <number>`."))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		label := e.Label
		if e.Archived {
			label = cli.SubtleStyle.Render("(archived) ") + label
		}
		rows = append(rows, []string{
			e.Display,
			e.Carrier.DisplayName(),
			cli.StatusIcon(e.Status) + " " + cli.FormatStatus(e.Status),
			cli.FormatConfidence(e.Confidence),
			label,
			e.CreatedAt.Local().Format("2006-01-02"),
			lastChecked(&e),
		})
	}

	fmt.Println(renderTable(
		[]string{"Number", "Carrier", "Status", "Confidence", "Label", "Added", "Checked"},
		rows))

	delivered := lo.CountBy(entries, func(e model.Entry) bool { return e.Status == model.StatusDelivered })
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d packages, %d delivered", len(entries), delivered)))
	return nil
}

// listFilter translates the command flags into a storage filter. --archived
// cannot be expressed in the filter alone; the caller trims actives after.
func listFilter(cmd *cobra.Command) (service.EntryFilter, bool, error) {
	filter := service.EntryFilter{}

	all, _ := cmd.Flags().GetBool("all")
	archivedOnly, _ := cmd.Flags().GetBool("archived")
	filter.IncludeArchived = all || archivedOnly

	if name, _ := cmd.Flags().GetString("carrier"); name != "" {
		cr, err := carrier.Parse(name)
		if err != nil {
			return filter, false, err
		}
		filter.Carrier = &cr
	}

	if name, _ := cmd.Flags().GetString("status"); name != "" {
		st, err := model.ParseStatus(name)
		if err != nil {
			return filter, false, err
		}
		filter.Status = &st
	}

	filter.Search, _ = cmd.Flags().GetString("search")
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	return filter, archivedOnly, nil
}

func lastChecked(e *model.Entry) string {
	if e.LastCheckedAt == nil {
		return cli.SubtleStyle.Render("never")
	}
	return e.LastCheckedAt.Local().Format("2006-01-02 15:04")
}
