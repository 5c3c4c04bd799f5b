package recording

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindFiles：展开命令行给出的路径
// 背景：参数可为文件、目录（递归）或通配模式；扩展名比较不区分大小写
// 返回：按给出顺序排列的文件列表，以及无法匹配到任何文件的参数
func FindFiles(paths []string, ext string) ([]string, []string) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	match := func(p string) bool {
		return ext == "" || strings.ToLower(filepath.Ext(p)) == ext
	}
	var files, invalid []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, arg := range paths {
		before := len(files)
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			var found []string
			_ = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if !d.IsDir() && match(p) {
					found = append(found, p)
				}
				return nil
			})
			sort.Strings(found)
			for _, p := range found {
				add(p)
			}
		case err == nil:
			if match(arg) {
				add(arg)
			}
		default:
			globbed, _ := filepath.Glob(arg)
			sort.Strings(globbed)
			for _, p := range globbed {
				if fi, e := os.Stat(p); e == nil && !fi.IsDir() && match(p) {
					add(p)
				}
			}
		}
		if len(files) == before {
			invalid = append(invalid, arg)
		}
	}
	return files, invalid
}

// HashBytes：内容的 SHA-256 十六进制摘要，作为重复导入判定键
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentHash：按流读取文件计算摘要，与 HashBytes 结果一致
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
