package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"ragchatbot/internal/config"
	mysqldb "ragchatbot/internal/database/mysql"
	"ragchatbot/internal/models"
	"ragchatbot/internal/userstore"
)

// seeduser creates an agent account, or resets its password with -update.
// There is no self-service registration, accounts are provisioned by an
// operator.
func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	username := flag.String("username", "", "login name (required)")
	password := flag.String("password", "", "plaintext password to hash (required)")
	fullName := flag.String("full-name", "", "display name")
	update := flag.Bool("update", false, "reset the password of an existing user")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := mysqldb.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	store, err := userstore.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to migrate user store: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	if *update {
		user, err := store.GetUserByUsername(*username)
		if err != nil {
			log.Fatalf("User %q not found: %v", *username, err)
		}
		user.Password = string(hashed)
		if *fullName != "" {
			user.FullName = *fullName
		}
		if err := store.UpdateUser(user); err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}
		log.Printf("Password updated for user %q (id %d)", user.Username, user.ID)
		return
	}

	user := &models.User{
		Username: *username,
		FullName: *fullName,
		Password: string(hashed),
	}
	if err := store.CreateUser(user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	log.Printf("Created user %q (id %d)", user.Username, user.ID)
}
