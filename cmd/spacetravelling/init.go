package main

import (
	"fmt"
	"path/filepath"

	"github.com/eringen/spacetravelling/scaffold"
)

// InitCmd writes starter configuration files.
type InitCmd struct {
	Dir        string `arg:"" optional:"" help:"Target directory" default:"." type:"path"`
	Force      bool   `help:"Overwrite existing files"`
	Repository string `help:"CMS repository name"`
	Locale     string `help:"Site locale, e.g. pt-BR" default:"en"`
}

func (i *InitCmd) Run() error {
	created, err := scaffold.Write(i.Dir, scaffold.Data{
		Repository: i.Repository,
		Locale:     i.Locale,
	}, i.Force)
	if err != nil {
		return err
	}
	for _, path := range created {
		fmt.Printf("  created %s\n", path)
	}
	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	fmt.Printf("  cp %s %s\n", filepath.Join(i.Dir, ".env.example"), filepath.Join(i.Dir, ".env"))
	fmt.Println("  spacetravelling --config config.yaml serve")
	return nil
}
