package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"stockroom/internal/config"
	"stockroom/internal/repos"
	"stockroom/internal/services"
)

// check reads the product file without the server and reports whether
// every record is well formed.
func check(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	catalog := services.NewCatalogService(repos.NewProductStore(cfg.ProductsFile), repos.NewImageStore(cfg.ImagesDir))
	products, err := catalog.Products.ReadFresh()
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", cfg.ProductsFile, err), 1)
	}

	w := c.App.Writer
	var units int
	for _, p := range products {
		a, _ := catalog.Availability(p.ID)
		img := "ok"
		if _, err := catalog.ImagePath(p.Image); err != nil {
			img = "missing"
		}
		fmt.Fprintf(w, "%4d  %-30s %15s  stock %4d  %-12s image %s\n",
			p.ID, p.Name, services.FormatRupiah(p.Price), p.Stock, a.Status, img)
		units += p.Stock
	}
	fmt.Fprintf(w, "%d products, %d units in stock\n", len(products), units)
	return nil
}
