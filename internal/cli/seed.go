package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/blogpost/blogpost/internal/config"
	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/internal/repository"
	"github.com/blogpost/blogpost/internal/service"
)

func newSeedCmd(e *env) *cobra.Command {
	var (
		count int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake posts",
		Long:  `Create --count fake posts through the post service, migrating the store first`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			if e.cfg.StoreDriver == config.DriverMemory {
				return fmt.Errorf("seeding the memory store has no lasting effect")
			}

			ctx := cmd.Context()
			store, err := repository.Open(ctx, repository.OpenOptions{
				Driver:  e.cfg.StoreDriver,
				URL:     e.cfg.DatabaseURL,
				Migrate: true,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			posts := service.NewPostService(store, service.Options{
				Logger:  e.logger,
				Timeout: e.cfg.StoreTimeout,
			})

			faker := gofakeit.New(seed)
			start := time.Now()
			for i := 0; i < count; i++ {
				post, err := posts.CreatePost(ctx, fakePost(faker))
				if err != nil {
					return fmt.Errorf("seed post %d: %w", i+1, err)
				}
				e.logger.Debug("post seeded", slog.String("post_id", post.ID))
				fmt.Fprintln(e.out, post.ID)
			}

			total, err := store.CountPosts(ctx)
			if err != nil {
				return err
			}
			e.logger.Info("seed complete",
				slog.Int("created", count),
				slog.Int("total_posts", total),
				slog.Duration("took", time.Since(start)),
			)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of posts to create")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for reproducible data (0 picks one)")

	return cmd
}

func fakePost(f *gofakeit.Faker) service.CreatePostInput {
	return service.CreatePostInput{
		Author: model.Author{
			FirstName: f.FirstName(),
			LastName:  f.LastName(),
		},
		Title:   f.Sentence(f.Number(3, 8)),
		Content: f.Paragraph(f.Number(1, 3), f.Number(2, 5), 12, "\n\n"),
	}
}
