package main

import (
	"log"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/joho/godotenv"

	_ "github.com/fitsocial/fitsocial-server/functions/analytics"       // Import function/init
	_ "github.com/fitsocial/fitsocial-server/functions/recommendations" // Import function/init
)

// Serves every function locally; FUNCTION_TARGET picks the one on "/".
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v\n", err)
	}
}
