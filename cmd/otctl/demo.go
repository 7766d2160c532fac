package main

import (
	"flag"
	"fmt"

	"github.com/otlabs/collabtext/internal/history"
	"github.com/otlabs/collabtext/ot"
	"github.com/otlabs/collabtext/otclient"
)

// runDemo exercises the full client/server round trip in a single process:
// two otclient.Clients share one history.Log the way a real otctl serve
// connection would, without opening any sockets. It exists to give a new
// reader something runnable that demonstrates convergence, the way
// goatee's demo/main.go launches its server and prints a URL to open.
func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	initial := fs.String("text", "hello", "initial document text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := history.New(*initial)
	docLen := len([]rune(*initial))

	aliceEditor := otclient.NewStringEditor(*initial)
	bobEditor := otclient.NewStringEditor(*initial)

	alice := otclient.New(0, docLen, aliceEditor, &otclient.RecordingTransport{})
	bob := otclient.New(0, docLen, bobEditor, &otclient.RecordingTransport{})

	// Alice types first; Bob is fully synchronized and simply receives the
	// accepted operation.
	aliceOp := ot.Wrap(ot.New().Retain(docLen).Insert(", alice was here"), ot.Meta{"clientId": "alice"})
	if err := alice.ApplyClient(aliceOp); err != nil {
		return err
	}
	if err := aliceEditor.ApplyOperation(aliceOp); err != nil {
		return err
	}

	aliceAccepted, aliceRev, err := log.Append("alice", 0, aliceOp)
	if err != nil {
		return err
	}
	if err := bob.ApplyServer(aliceAccepted); err != nil {
		return err
	}
	if err := alice.ServerAck(); err != nil {
		return err
	}

	// Bob types next, now parented off the revision Alice just committed;
	// Alice is fully synchronized again and simply receives it back.
	bobOp := ot.Wrap(ot.New().Insert("bob says: ").Retain(len([]rune(aliceEditor.Value()))), ot.Meta{"clientId": "bob"})
	if err := bob.ApplyClient(bobOp); err != nil {
		return err
	}
	if err := bobEditor.ApplyOperation(bobOp); err != nil {
		return err
	}

	bobAccepted, bobRev, err := log.Append("bob", aliceRev, bobOp)
	if err != nil {
		return err
	}
	if err := alice.ApplyServer(bobAccepted); err != nil {
		return err
	}
	if err := bob.ServerAck(); err != nil {
		return err
	}

	fmt.Printf("server revision: %d\n", bobRev)
	fmt.Printf("server document: %q\n", log.Value())
	fmt.Printf("alice's document: %q\n", aliceEditor.Value())
	fmt.Printf("bob's document:   %q\n", bobEditor.Value())
	if aliceEditor.Value() != bobEditor.Value() || aliceEditor.Value() != log.Value() {
		return fmt.Errorf("demo: documents failed to converge")
	}
	return nil
}
