package main

import (
	"github.com/Daiya404/CoverPics/internal/cmd"
)

func main() {
	cmd.Execute()
}
