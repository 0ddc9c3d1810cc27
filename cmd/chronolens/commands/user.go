package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronolens/chronolens/internal/cli/output"
	"github.com/chronolens/chronolens/internal/cli/prompt"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/config"
)

var (
	userAddPassword string
	userListOutput  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users (add, list)",
	Long: `Manage users directly against the catalog database.

These commands are for bootstrapping and administration; regular users sign
up through the /register endpoint.

Examples:
  # Add a user interactively
  chronolens user add alice

  # Add a user non-interactively
  chronolens user add alice --password secret-password

  # List users
  chronolens user list`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	userAddCmd.Flags().StringVarP(&userAddPassword, "password", "p", "", "Password (prompts if not provided)")
	userListCmd.Flags().StringVarP(&userListOutput, "output", "o", "table", "Output format (table, json, yaml)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
}

// openCatalog loads the configuration and opens the catalog store for a
// one-shot administrative command.
func openCatalog() (*catalog.Store, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	return catalog.New(&cfg.Database)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	password := userAddPassword
	if password == "" {
		var err error
		password, err = prompt.PasswordWithConfirmation("Password", "Confirm password", 8)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := store.AddUser(context.Background(), username, password)
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicateUser) {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("failed to add user: %w", err)
	}

	fmt.Printf("User %q created (id: %s)\n", username, id)
	return nil
}

// userRow is the user projection shown by `user list`. Password hashes
// never leave the catalog.
type userRow struct {
	Username string `json:"username" yaml:"username"`
	ID       string `json:"id"       yaml:"id"`
}

type userList []userRow

func (ul userList) Headers() []string {
	return []string{"USERNAME", "ID"}
}

func (ul userList) Rows() [][]string {
	rows := make([][]string, 0, len(ul))
	for _, u := range ul {
		rows = append(rows, []string{u.Username, u.ID})
	}
	return rows
}

func runUserList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(userListOutput)
	if err != nil {
		return err
	}

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	users, err := store.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 && format == output.FormatTable {
		fmt.Println("No users found.")
		return nil
	}

	rows := make(userList, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{Username: u.Username, ID: u.ID})
	}

	return output.NewPrinter(os.Stdout, format).Print(rows)
}
