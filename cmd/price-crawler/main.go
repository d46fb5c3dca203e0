package main

import (
	"github.com/szhangbiao/price-crawler/internal/cli"
)

func main() {
	cli.Execute()
}
