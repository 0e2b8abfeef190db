package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"agentmarket/internal/models"
)

func agentsCommand(run runFunc) *cobra.Command {
	agents := &cobra.Command{
		Use:   "agents",
		Short: "Browse, inspect and publish agents",
	}

	var q models.ListingQuery
	var sortBy string
	list := &cobra.Command{
		Use:   "list",
		Short: "List approved agents",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			q.SortBy = models.SortKey(sortBy)
			page, err := a.client.ListAgents(ctx, q)
			if err != nil {
				return err
			}
			printAgents(a.out, page, false)
			return nil
		}),
	}
	list.Flags().StringVar(&q.Category, "category", "", "category slug, or all")
	list.Flags().StringVar(&q.Search, "search", "", "match name or description")
	list.Flags().StringVar(&sortBy, "sort", string(models.SortPopular), "popular, rating, price-low, price-high or newest")
	list.Flags().IntVar(&q.Page, "page", models.DefaultPage, "page number")
	list.Flags().IntVar(&q.Limit, "limit", models.DefaultLimit, "agents per page")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid agent id %q", args[0])
			}
			agent, err := a.client.GetAgent(ctx, id)
			if err != nil {
				return err
			}
			printAgent(a.out, agent)
			return nil
		}),
	}

	var draft models.AgentDraft
	var price, category string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new listing for review",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			p, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q", price)
			}
			draft.Price = p
			cats, err := a.client.Categories(ctx)
			if err != nil {
				return err
			}
			if draft.CategoryID, err = resolveCategory(cats, category); err != nil {
				return err
			}
			agent, err := a.client.SubmitAgent(ctx, draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "submitted %s (%s), status %s\n", agent.Name, agent.ID, agent.Status)
			return nil
		}),
	}
	submit.Flags().StringVar(&draft.Name, "name", "", "listing name")
	submit.Flags().StringVar(&draft.Description, "description", "", "listing description")
	submit.Flags().StringSliceVar(&draft.Tags, "tags", nil, "comma-separated tags")
	submit.Flags().StringVar(&price, "price", "0", "price in USD")
	submit.Flags().StringVar(&category, "category", "", "category slug or id")
	submit.MarkFlagRequired("name")
	submit.MarkFlagRequired("category")

	var page, limit int
	mine := &cobra.Command{
		Use:   "mine",
		Short: "List your own listings in every status",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			res, err := a.client.MyAgents(ctx, page, limit)
			if err != nil {
				return err
			}
			printAgents(a.out, res, true)
			return nil
		}),
	}
	mine.Flags().IntVar(&page, "page", models.DefaultPage, "page number")
	mine.Flags().IntVar(&limit, "limit", models.DefaultLimit, "agents per page")

	agents.AddCommand(list, get, submit, mine)
	return agents
}

func categoriesCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List agent categories",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			cats, err := a.client.Categories(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tNAME\tCOLOR")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Slug, c.Name, c.Color)
			}
			return tw.Flush()
		}),
	}
}

// resolveCategory accepts a category id or slug.
func resolveCategory(cats []models.Category, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	id, idErr := uuid.Parse(ref)
	for _, c := range cats {
		if (idErr == nil && c.ID == id) || strings.EqualFold(c.Slug, ref) {
			return c.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("unknown category %q", ref)
}

func printAgents(w io.Writer, page *models.AgentPage, withStatus bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "ID\tNAME\tCATEGORY\tPRICE\tRATING\tSALES"
	if withStatus {
		header += "\tSTATUS"
	}
	fmt.Fprintln(tw, header)
	for _, ag := range page.Agents {
		category := "-"
		if ag.Category != nil {
			category = ag.Category.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t$%s\t%.1f\t%d", ag.ID, ag.Name, category, ag.Price.StringFixed(2), ag.Rating, ag.TotalSales)
		if withStatus {
			fmt.Fprintf(tw, "\t%s", ag.Status)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	p := page.Pagination
	fmt.Fprintf(w, "page %d of %d, %d agents\n", p.Page, p.TotalPages, p.Total)
}

func printAgent(w io.Writer, ag *models.Agent) {
	fmt.Fprintf(w, "%s\n", ag.Name)
	fmt.Fprintf(w, "  id:       %s\n", ag.ID)
	if ag.Category != nil {
		fmt.Fprintf(w, "  category: %s\n", ag.Category.Name)
	}
	if ag.Creator != nil {
		fmt.Fprintf(w, "  creator:  %s\n", ag.Creator.DisplayName())
	}
	fmt.Fprintf(w, "  price:    $%s\n", ag.Price.StringFixed(2))
	fmt.Fprintf(w, "  rating:   %.1f (%d sales)\n", ag.Rating, ag.TotalSales)
	if len(ag.Tags) > 0 {
		fmt.Fprintf(w, "  tags:     %s\n", strings.Join(ag.Tags, ", "))
	}
	if ag.Description != "" {
		fmt.Fprintf(w, "\n%s\n", ag.Description)
	}
}
