package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/userhub/userhub/config"
	"github.com/userhub/userhub/database"
	"github.com/userhub/userhub/logger"
	"github.com/userhub/userhub/util/common"
	"github.com/userhub/userhub/util/crypto"
	"github.com/userhub/userhub/util/metrics"
	"github.com/userhub/userhub/util/random"
	"github.com/userhub/userhub/web"
	"github.com/userhub/userhub/web/entity"
	"github.com/userhub/userhub/web/service"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const generatedPasswordLength = 12

func openStore() (*gorm.DB, *service.UserService, crypto.Hasher, error) {
	hasher, err := crypto.NewHasher(config.GetPasswordHash(), config.GetBcryptCost())
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.InitDB(config.GetDefaultDatabaseConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	return db, service.NewUserService(db, hasher), hasher, nil
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	level, err := logger.LevelFromConfig(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
	defer logger.CloseLogger()

	db, _, hasher, err := openStore()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			logger.Warning("close db err:", err)
		}
	}()

	// counters survive SIGHUP rebuilds
	m := metrics.NewMetrics()
	server := web.NewServer(db, hasher, m)
	if err := server.Start(); err != nil {
		logger.Error("start server err:", err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// SIGHUP rebuilds the server in place; SIGINT/SIGTERM stop it
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("reloading web server")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer(db, hasher, m)
			if err := server.Start(); err != nil {
				logger.Error("restart server err:", err)
				return
			}
		default:
			logger.Infof("received %v, shutting down", sig)
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func addUser(name, password, role string) (err error) {
	db, userService, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		err = common.Combine(err, database.CloseDB(db))
	}()

	generated := password == ""
	if generated {
		password = random.Seq(generatedPasswordLength)
	}

	user, err := userService.AddUser(context.Background(), name, password, role)
	if err != nil {
		return fmt.Errorf("add user failed: %w", err)
	}
	fmt.Printf("user %q created with id %d\n", user.Name, user.Id)
	if generated {
		fmt.Println("generated password:", password)
	}
	return nil
}

func listUsers() (err error) {
	db, userService, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		err = common.Combine(err, database.CloseDB(db))
	}()

	users, err := userService.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users failed: %w", err)
	}
	out, err := json.MarshalIndent(entity.NewUserResponses(users), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func showSetting() {
	fmt.Println("current settings as follows:")
	fmt.Println("listen:", config.GetListen())
	fmt.Println("port:", config.GetPort())
	fmt.Println("db path:", config.GetDBPath())
	fmt.Println("log folder:", config.GetLogFolder())
	fmt.Println("log level:", config.GetLogLevel())
	fmt.Println("password hash:", config.GetPasswordHash())
	fmt.Println("checkpoint cron:", config.GetCheckpointCron())
}

func main() {
	var rootCmd = &cobra.Command{
		Use:     config.GetName(),
		Version: config.GetVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "load environment variables from this file")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var addCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			return addUser(name, password, role)
		},
	}
	addCmd.Flags().String("name", "", "user name")
	addCmd.Flags().String("password", "", "user password, generated when empty")
	addCmd.Flags().String("role", "", "user role")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("role")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List users as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUsers()
		},
	}

	userCmd.AddCommand(addCmd, listCmd)

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Inspect settings",
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	settingCmd.AddCommand(showCmd)

	rootCmd.AddCommand(runCmd, userCmd, settingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
