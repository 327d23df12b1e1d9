package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/daimatz/minijvm/pkg/classfile"
	"github.com/daimatz/minijvm/pkg/insn"
)

// ErrClassNotFound is returned when no classpath entry holds a class.
var ErrClassNotFound = errors.New("class not found")

// ClassLoader loads .class files by class name.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// BinaryName converts a class name given as "pkg.Main", "pkg/Main" or
// "pkg/Main.class" to the binary form "pkg/Main".
func BinaryName(name string) string {
	name = strings.TrimSuffix(name, ".class")
	return strings.ReplaceAll(name, ".", "/")
}

// DirClassLoader loads classes from a directory tree.
type DirClassLoader struct {
	Dir   string
	Cache map[string]*classfile.ClassFile
}

// NewDirClassLoader creates a DirClassLoader rooted at dir.
func NewDirClassLoader(dir string) *DirClassLoader {
	return &DirClassLoader{
		Dir:   dir,
		Cache: make(map[string]*classfile.ClassFile),
	}
}

func (cl *DirClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	name = BinaryName(name)
	if cf, ok := cl.Cache[name]; ok {
		return cf, nil
	}
	path := filepath.Join(cl.Dir, filepath.FromSlash(name)+".class")
	cf, err := classfile.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, name, cl.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("dir: parsing %s: %w", name, err)
	}
	cl.Cache[name] = cf
	return cf, nil
}

// jmodMagic prefixes the zip data of a JDK .jmod file.
var jmodMagic = []byte("JM\x01\x00")

// ArchiveClassLoader loads classes from a .jar or JDK .jmod file. The
// archive is read on first use.
type ArchiveClassLoader struct {
	Path      string
	Cache     map[string]*classfile.ClassFile
	prefix    string
	zipReader *zip.Reader
}

// NewArchiveClassLoader creates an ArchiveClassLoader for path.
func NewArchiveClassLoader(path string) *ArchiveClassLoader {
	return &ArchiveClassLoader{
		Path:  path,
		Cache: make(map[string]*classfile.ClassFile),
	}
}

func (cl *ArchiveClassLoader) ensureZipReader() error {
	if cl.zipReader != nil {
		return nil
	}

	data, err := os.ReadFile(cl.Path)
	if err != nil {
		return fmt.Errorf("archive: reading %s: %w", cl.Path, err)
	}
	if bytes.HasPrefix(data, jmodMagic) {
		data = data[len(jmodMagic):]
		cl.prefix = "classes/"
	}

	cl.zipReader, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("archive: opening %s: %w", cl.Path, err)
	}
	return nil
}

func (cl *ArchiveClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	name = BinaryName(name)
	if cf, ok := cl.Cache[name]; ok {
		return cf, nil
	}

	if err := cl.ensureZipReader(); err != nil {
		return nil, err
	}

	target := cl.prefix + name + ".class"
	for _, file := range cl.zipReader.File {
		if file.Name != target {
			continue
		}
		cf, err := parseEntry(file)
		if err != nil {
			return nil, fmt.Errorf("archive: parsing %s: %w", name, err)
		}
		cl.Cache[name] = cf
		return cf, nil
	}

	return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, name, cl.Path)
}

func parseEntry(file *zip.File) (*classfile.ClassFile, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return classfile.Parse(rc)
}

// ClassPath searches its entries in order.
type ClassPath []ClassLoader

// NewClassPath builds a ClassPath from a list of directories and archives
// separated by os.PathListSeparator. An empty list means the current
// directory.
func NewClassPath(list string) ClassPath {
	if list == "" {
		list = "."
	}
	var cp ClassPath
	for _, entry := range filepath.SplitList(list) {
		switch strings.ToLower(filepath.Ext(entry)) {
		case ".jar", ".zip", ".jmod":
			cp = append(cp, NewArchiveClassLoader(entry))
		default:
			cp = append(cp, NewDirClassLoader(entry))
		}
	}
	return cp
}

func (cp ClassPath) LoadClass(name string) (*classfile.ClassFile, error) {
	for _, cl := range cp {
		cf, err := cl.LoadClass(name)
		if errors.Is(err, ErrClassNotFound) {
			continue
		}
		return cf, err
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, BinaryName(name))
}

// LoadEntry loads class through cl and decodes its public static method
// called method.
func LoadEntry(cl ClassLoader, class, method string) (*insn.Method, error) {
	cf, err := cl.LoadClass(class)
	if err != nil {
		return nil, err
	}
	mi, err := cf.FindEntryMethod(method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", BinaryName(class), err)
	}
	return Decode(cf, mi)
}

// LoadFile parses the class file at path and decodes its public static
// method called method.
func LoadFile(path, method string) (*classfile.ClassFile, *insn.Method, error) {
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	mi, err := cf.FindEntryMethod(method)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	m, err := Decode(cf, mi)
	if err != nil {
		return nil, nil, err
	}
	return cf, m, nil
}
