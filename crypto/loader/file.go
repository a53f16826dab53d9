package loader

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// keyPerm is the mode of a key file. A key readable by the group or the
// others is refused.
const keyPerm os.FileMode = 0400

// fileLoader stores the wallet key hex-encoded in a file. A new key is first
// written to a temporary file of the same folder which is then renamed so
// that a crash never leaves a truncated key behind.
//
// - implements loader.Loader
type fileLoader struct {
	path string

	statFn     func(path string) (os.FileInfo, error)
	readFn     func(path string) ([]byte, error)
	mkdirFn    func(path string, perms os.FileMode) error
	createFn   func(dir, pattern string) (*os.File, error)
	renameFn   func(from, to string) error
	checkPerms bool
}

// NewFileLoader creates a new loader of the key file at the path.
func NewFileLoader(path string) Loader {
	return fileLoader{
		path:       path,
		statFn:     os.Stat,
		readFn:     os.ReadFile,
		mkdirFn:    os.MkdirAll,
		createFn:   os.CreateTemp,
		renameFn:   os.Rename,
		checkPerms: true,
	}
}

// LoadOrCreate implements loader.Loader. It loads the key of the file, or
// generates one and writes it when the file does not exist yet.
func (l fileLoader) LoadOrCreate(g Generator) ([]byte, error) {
	_, err := l.statFn(l.path)
	if err == nil {
		data, err := l.Load()
		if err != nil {
			return nil, xerrors.Errorf("failed to load file: %v", err)
		}

		return data, nil
	}

	if !os.IsNotExist(err) {
		return nil, xerrors.Errorf("while checking file: %v", err)
	}

	data, err := g.Generate()
	if err != nil {
		return nil, xerrors.Errorf("generator failed: %v", err)
	}

	err = l.write(data)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (l fileLoader) write(data []byte) error {
	dir := filepath.Dir(l.path)

	err := l.mkdirFn(dir, 0700)
	if err != nil {
		return xerrors.Errorf("while creating folder: %v", err)
	}

	file, err := l.createFn(dir, ".key-*")
	if err != nil {
		return xerrors.Errorf("while creating file: %v", err)
	}

	tmp := file.Name()
	defer os.Remove(tmp)

	_, err = file.WriteString(hex.EncodeToString(data))
	if err == nil {
		err = file.Chmod(keyPerm)
	}

	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		return xerrors.Errorf("while writing: %v", err)
	}

	err = l.renameFn(tmp, l.path)
	if err != nil {
		return xerrors.Errorf("while moving file: %v", err)
	}

	return nil
}

// Load implements loader.Loader. It returns an error if the file does not
// exist or if other users can read it.
func (l fileLoader) Load() ([]byte, error) {
	if l.checkPerms {
		info, err := l.statFn(l.path)
		if err != nil {
			return nil, xerrors.Errorf("while opening file: %v", err)
		}

		if info.Mode().Perm()&0077 != 0 {
			return nil, xerrors.Errorf("key file '%s' is accessible by other users (%o)",
				l.path, info.Mode().Perm())
		}
	}

	text, err := l.readFn(l.path)
	if err != nil {
		return nil, xerrors.Errorf("while reading file: %v", err)
	}

	data, err := hex.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return nil, xerrors.Errorf("malformed key: %v", err)
	}

	return data, nil
}
