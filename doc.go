/*
Package extractfaces detects faces in batches of images with a cascade classifier
and writes, for every image containing at least one face, either a copy with the
faces outlined or one cropped and resized image per face.

The package provides a command line interface, supporting various flags for the
detector tuning and the output layout. To check the supported commands type:

	$ extractfaces --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"

		"github.com/imgtools/extractfaces"
	)

	func main() {
		cfg := extractfaces.DefaultConfig()
		cfg.InputDir = "photos"
		cfg.OutputDir = "faces"
		cfg.OutputFaces = true

		cfg, err := cfg.Prepare()
		if err != nil {
			fmt.Printf("Invalid configuration: %s", err.Error())
			return
		}
		det, err := extractfaces.NewDetector(cfg)
		if err != nil {
			fmt.Printf("Error loading the cascade: %s", err.Error())
			return
		}
		defer det.Close()

		proc := extractfaces.NewProcessor(cfg, det, nil)
		sum := extractfaces.NewRunner(cfg, proc, nil).Execute(context.Background())
		fmt.Printf("%d faces written\n", sum.Written)
	}
*/
package extractfaces
