package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/database"
	"github.com/confportal/authcore/rbac"
	"github.com/confportal/authcore/services/logging"
	"github.com/confportal/authcore/services/password"
)

const usage = `Usage: authcore-admin <command> [flags]

Commands:
  superuser   create a verified superuser account
  seed-rbac   seed verbs, resources, permissions and the admin role

Run 'authcore-admin <command> -h' for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "superuser":
		err = runSuperuser(os.Args[2:])
	case "seed-rbac":
		err = runSeedRBAC(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *gorm.DB, *logging.Service, error) {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.NewService(logging.Config{
		Level:      logging.LogLevel(cfg.Log.Level),
		Format:     "console",
		OutputPath: "stdout",
	})
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.ProvideDatabase(*cfg, database.WithModels(rbac.Models()...), logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, db, logger, nil
}

func runSuperuser(args []string) error {
	fs := flag.NewFlagSet("superuser", flag.ExitOnError)
	var (
		email       = fs.String("email", "", "superuser email (required)")
		phoneNumber = fs.String("phone", "", "phone number in international format (required)")
		displayName = fs.String("name", "", "display name (defaults to email)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *phoneNumber == "" {
		fs.Usage()
		return fmt.Errorf("both -email and -phone are required")
	}

	plaintext, err := readPassword()
	if err != nil {
		return err
	}

	cfg, db, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	provisioner := rbac.NewProvisioner(db, password.NewService(cfg, logger), logger)

	user, created, err := provisioner.CreateSuperuser(context.Background(), *email, *phoneNumber, plaintext, *displayName)
	if err != nil {
		return err
	}

	if !created {
		fmt.Printf("user already exists for %s, nothing done\n", *email)
		return nil
	}

	fmt.Printf("superuser created: %s (%s)\n", user.Email, user.ID)
	return nil
}

func runSeedRBAC(args []string) error {
	fs := flag.NewFlagSet("seed-rbac", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, db, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := rbac.NewSeeder(db, logger).Seed(context.Background()); err != nil {
		return err
	}

	fmt.Println("rbac seed completed")
	return nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}

	return string(first), nil
}
