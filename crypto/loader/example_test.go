package loader

import (
	"fmt"
	"os"
	"path/filepath"
)

func ExampleLoader_LoadOrCreate() {
	dir, err := os.MkdirTemp(os.TempDir(), "wallet")
	if err != nil {
		panic("no folder: " + err.Error())
	}

	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "keys", "private.key")

	key, err := NewFileLoader(path).LoadOrCreate(sequenceGenerator{})
	if err != nil {
		panic("loading key failed: " + err.Error())
	}

	again, err := NewFileLoader(path).Load()
	if err != nil {
		panic("reading key failed: " + err.Error())
	}

	fmt.Printf("%x %x\n", key, again)

	// Output: 00010203 00010203
}

type sequenceGenerator struct{}

func (sequenceGenerator) Generate() ([]byte, error) {
	return []byte{0, 1, 2, 3}, nil
}
