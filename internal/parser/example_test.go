package parser_test

import (
	"context"
	"fmt"
	"log"

	"github.com/ludo-technologies/pyrefminer/internal/parser"
)

func ExampleParseModule() {
	source := []byte(`class Greeter:
    def greet(self, name):
        """Say hello."""
        message = "Hello " + name  # greeting
        return message
`)

	module, err := parser.ParseModule(context.Background(), source, "greeter.py")
	if err != nil {
		log.Fatal(err)
	}

	for _, op := range module.AllOperations() {
		fmt.Println(op)
		for _, leaf := range op.Body.Leaves() {
			fmt.Print(leaf.Text)
		}
	}

	// Output:
	// Greeter.greet(name)
	// message = "Hello " + name
	// return message
}
