package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "version", "--version":
		fmt.Println("supamcp " + versionString())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("supamcp — Supabase-style PostgreSQL CRUD MCP Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  supamcp serve       Start the MCP server")
	fmt.Println("  supamcp version     Print the server version")
	fmt.Println("  supamcp --help      Show this help message")
}
