/*
Package specfile writes event-model document streams as spec files, the
plain-text scan format read by classic beamline analysis tools.

A run is described by a sequence of documents: a start document, one or
more descriptors, events (or event pages) and a stop document. Each run is
rendered into one spec file named after the run, by default "<uid>.spec".
Runs sharing a file name are appended to the same file; the file header is
only written when the file is new.

# Layout

	#F <file name>           file header, once per file
	#E <epoch>
	#D <readable time>
	#C <owner>  User = <owner>
	#O0 <baseline sources>
	#o0 <baseline names>

	#S <scan id> <command>   scan header, once per run
	#D <readable time>
	#T <count time>  (Seconds)
	#P0 <baseline positions>
	#N <columns>
	#L <x>  Epoch  Seconds  <columns...>
	<x>  <epoch> <count time> <values...>

# Usage

Feed documents one at a time with a Serializer, or drain a whole source with Export:

	package main

	import (
		"context"
		"log"
		"os"

		"github.com/aretw0/specfile"
		"github.com/aretw0/specfile/pkg/adapters/file"
		"github.com/aretw0/specfile/pkg/adapters/jsonl"
	)

	func main() {
		artifacts, err := specfile.Export(context.Background(),
			jsonl.NewSource(os.Stdin),
			file.New("./spec"),
			specfile.WithFlush(true),
		)
		if err != nil {
			log.Fatal(err)
		}
		log.Println(artifacts)
	}
*/
package specfile
