package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/taskboard/internal/adapters/security"
	"github.com/vncsmyrnk/taskboard/internal/config"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/logging"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedFile []byte

type fixture struct {
	Password string        `yaml:"password"`
	Users    []userFixture `yaml:"users"`
	Projects []projectSeed `yaml:"projects"`
}

type userFixture struct {
	Email     string `yaml:"email"`
	Username  string `yaml:"username"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
}

type projectSeed struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Status      string     `yaml:"status"`
	Owner       string     `yaml:"owner"`
	Members     []string   `yaml:"members"`
	Tasks       []taskSeed `yaml:"tasks"`
}

type taskSeed struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Priority    string `yaml:"priority"`
	Creator     string `yaml:"creator"`
	Assignee    string `yaml:"assignee"`
	DueInDays   *int   `yaml:"dueInDays"`
}

func main() {
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), false)

	if os.Getenv("APP_ENV") == "production" {
		log.Fatal().Msg("cannot seed a production database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var fx fixture
	if err := yaml.Unmarshal(seedFile, &fx); err != nil {
		log.Fatal().Err(err).Msg("parse seed file")
	}

	dbCfg, err := config.LoadDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load database config")
	}

	db, err := postgres.Open(ctx, dbCfg.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	if err := seed(ctx, db, fx, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().
		Int("users", len(fx.Users)).
		Int("projects", len(fx.Projects)).
		Str("password", fx.Password).
		Msg("seed completed")
}

func seed(ctx context.Context, db *sql.DB, fx fixture, now time.Time) error {
	if err := postgres.Truncate(ctx, db); err != nil {
		return err
	}

	users := postgres.NewUserRepository(db)
	projects := postgres.NewProjectRepository(db)
	members := postgres.NewMemberRepository(db)
	tasks := postgres.NewTaskRepository(db)

	hash, err := security.NewArgon2Hasher(security.DefaultArgon2Params()).Hash(fx.Password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	ids := make(map[string]uuid.UUID, len(fx.Users))
	for _, u := range fx.Users {
		user := &domain.User{
			Email:        u.Email,
			Username:     optional(u.Username),
			FirstName:    optional(u.FirstName),
			LastName:     optional(u.LastName),
			PasswordHash: hash,
			Role:         domain.RoleUser,
			IsVerified:   true,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		ids[u.Username] = user.ID
	}

	lookup := func(username string) (uuid.UUID, error) {
		id, ok := ids[username]
		if !ok {
			return uuid.Nil, fmt.Errorf("unknown seed user %q", username)
		}
		return id, nil
	}

	for _, p := range fx.Projects {
		ownerID, err := lookup(p.Owner)
		if err != nil {
			return err
		}
		project := &domain.Project{
			ID:          uuid.New(),
			Name:        p.Name,
			Description: optional(p.Description),
			Status:      domain.ProjectStatus(p.Status),
			OwnerID:     ownerID,
		}
		if err := projects.CreateWithOwner(ctx, project); err != nil {
			return fmt.Errorf("failed to create project %s: %w", p.Name, err)
		}

		for _, username := range p.Members {
			userID, err := lookup(username)
			if err != nil {
				return err
			}
			member := &domain.ProjectMember{ProjectID: project.ID, UserID: userID, Role: domain.ProjectRoleMember}
			if err := members.Add(ctx, member); err != nil {
				return fmt.Errorf("failed to add %s to %s: %w", username, p.Name, err)
			}
		}

		for _, t := range p.Tasks {
			creatorID, err := lookup(t.Creator)
			if err != nil {
				return err
			}
			task := &domain.Task{
				ID:          uuid.New(),
				ProjectID:   project.ID,
				Title:       t.Title,
				Description: optional(t.Description),
				Priority:    domain.TaskPriority(t.Priority),
				CreatorID:   creatorID,
			}
			task.ApplyStatus(domain.TaskStatus(t.Status), now)
			if t.Assignee != "" {
				assigneeID, err := lookup(t.Assignee)
				if err != nil {
					return err
				}
				task.AssigneeID = &assigneeID
			}
			if t.DueInDays != nil {
				due := now.AddDate(0, 0, *t.DueInDays)
				task.DueDate = &due
			}
			if err := tasks.Create(ctx, task); err != nil {
				return fmt.Errorf("failed to create task %s: %w", t.Title, err)
			}
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
