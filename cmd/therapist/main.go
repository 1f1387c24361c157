package main

import "github.com/zhouzirui/therapist-ai/backend/internal/commands"

func main() {
	commands.Execute()
}
