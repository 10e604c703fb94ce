package main

import (
	"ladle/internal/ladle"
)

func main() {
	ladle.Main()
}
