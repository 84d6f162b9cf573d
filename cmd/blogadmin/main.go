// Command blogadmin manages categories and locations from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"go-blog-app/internal/config"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/service"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

const usage = `Usage: blogadmin <command> [flags]

Commands:
  category add --title T --slug S [--description D] [--published]
  category publish <slug>
  category unpublish <slug>
  category list
  location add --name N [--published]
  location list
`

// adminService is the part of service.AdminService the CLI drives.
type adminService interface {
	AddCategory(ctx context.Context, title, slug, description string, published bool) (*data.Category, error)
	SetCategoryPublished(ctx context.Context, slug string, published bool) error
	ListCategories(ctx context.Context) ([]*data.Category, error)
	AddLocation(ctx context.Context, name string, published bool) (*data.Location, error)
	ListLocations(ctx context.Context) ([]*data.Location, error)
}

var errUsage = errors.New("invalid usage")

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log, os.Stderr)

	if err := data.ApplyMigrations(cfg.DB); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	admin := service.NewAdminService(data.NewCategoryRepository(db), data.NewLocationRepository(db))
	if err := run(context.Background(), os.Args[1:], os.Stdout, admin); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "blogadmin: %v\n", err)
		db.Close()
		os.Exit(1)
	}
}

// run executes one CLI command against the admin service.
func run(ctx context.Context, args []string, out io.Writer, admin adminService) error {
	if len(args) < 2 {
		return errUsage
	}
	group, command, rest := args[0], args[1], args[2:]

	switch group + " " + command {
	case "category add":
		fs := pflag.NewFlagSet("category add", pflag.ContinueOnError)
		fs.SetOutput(io.Discard)
		title := fs.String("title", "", "category title")
		slug := fs.String("slug", "", "URL identifier")
		description := fs.String("description", "", "category description")
		published := fs.Bool("published", false, "publish immediately")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		c, err := admin.AddCategory(ctx, *title, *slug, *description, *published)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created category %q (id %d)\n", c.Slug, c.ID)

	case "category publish", "category unpublish":
		if len(rest) != 1 {
			return errUsage
		}
		published := command == "publish"
		if err := admin.SetCategoryPublished(ctx, rest[0], published); err != nil {
			return err
		}
		fmt.Fprintf(out, "category %q published=%t\n", rest[0], published)

	case "category list":
		categories, err := admin.ListCategories(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSLUG\tTITLE\tPUBLISHED")
		for _, c := range categories {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", c.ID, c.Slug, c.Title, c.IsPublished)
		}
		return tw.Flush()

	case "location add":
		fs := pflag.NewFlagSet("location add", pflag.ContinueOnError)
		fs.SetOutput(io.Discard)
		name := fs.String("name", "", "location name")
		published := fs.Bool("published", false, "offer on the post form")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		l, err := admin.AddLocation(ctx, *name, *published)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created location %q (id %d)\n", l.Name, l.ID)

	case "location list":
		locations, err := admin.ListLocations(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPUBLISHED")
		for _, l := range locations {
			fmt.Fprintf(tw, "%d\t%s\t%t\n", l.ID, l.Name, l.IsPublished)
		}
		return tw.Flush()

	default:
		return errUsage
	}
	return nil
}
