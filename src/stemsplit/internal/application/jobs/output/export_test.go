package output

func SetRename(replacement func(oldpath string, newpath string) error) (restore func()) {
	original := rename
	rename = replacement
	return func() {
		rename = original
	}
}
