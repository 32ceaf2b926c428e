package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	cmd "github.com/liliang-cn/tubechat/cmd/tubechat"
)

var version = "dev"

func main() {
	// Pick up OPENAI_API_KEY and friends from a local .env if present.
	_ = godotenv.Load()

	cmd.SetVersion(version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
