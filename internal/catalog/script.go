// 包 catalog：区域目录的导出与导入，交换格式为带 WKT 几何的 INSERT 语句脚本
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"track-spatial/internal/model"
)

// Insert：脚本中一条可识别的区域插入
type Insert struct {
	Name      string
	Qualifier string
	WKT       string
}

// Script：解析结果
// 约束：Invalid 为形似区域插入但无法解析的语句，导入时计为失败；Ignored 为非插入或插入其他表的语句数
type Script struct {
	Inserts []Insert
	Invalid []InvalidStatement
	Ignored int
}

// InvalidStatement：无法解析的插入语句及原因
type InvalidStatement struct {
	Text string
	Err  error
}

var (
	errNoValues = errors.New("values do not match columns")

	tableRe  = regexp.MustCompile(`(?is)^insert\s+(?:or\s+\w+\s+)?into\s+["'` + "`" + `]?(\w+)`)
	insertRe = regexp.MustCompile(`(?is)^insert\s+(?:or\s+\w+\s+)?into\s+["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*\(([^)]*)\)\s*values\s*\((.*)\)$`)

	// 历史脚本使用 citydefs(city, country, geom)
	regionTables = map[string]bool{"regions": true, "citydefs": true}
	columnAlias  = map[string]string{
		"name": "name", "city": "name",
		"qualifier": "qualifier", "country": "qualifier",
		"geom": "geom", "geometry": "geom",
	}
	geomFuncs = map[string]bool{
		"geomfromtext": true, "st_geomfromtext": true,
		"polygonfromtext": true, "st_polygonfromtext": true,
		"mpolyfromtext": true, "st_mpolyfromtext": true,
	}
)

// ParseScript：读取整段脚本并拆分为语句
func ParseScript(r io.Reader) (Script, error) {
	var sc Script
	b, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return sc, err
	}
	for _, stmt := range SplitStatements(string(b)) {
		if !strings.HasPrefix(strings.ToUpper(stmt), "INSERT") {
			sc.Ignored++
			continue
		}
		ins, ok, err := parseInsert(stmt)
		switch {
		case err != nil:
			sc.Invalid = append(sc.Invalid, InvalidStatement{Text: stmt, Err: err})
		case !ok:
			sc.Ignored++
		default:
			sc.Inserts = append(sc.Inserts, ins)
		}
	}
	return sc, nil
}

// SplitStatements：按分号拆分，忽略引号内与注释中的分号；返回去掉首尾空白的非空语句
func SplitStatements(s string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == quote {
				// 连续两个引号为转义
				if i+1 < len(s) && s[i+1] == quote {
					cur.WriteByte(s[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// parseInsert：ok=false 表示插入的是其他表
func parseInsert(stmt string) (Insert, bool, error) {
	stmt = strings.TrimSpace(stmt)
	// 先认表名：其他表的插入无论写法如何都忽略
	t := tableRe.FindStringSubmatch(stmt)
	if t != nil && !regionTables[strings.ToLower(t[1])] {
		return Insert{}, false, nil
	}
	m := insertRe.FindStringSubmatch(stmt)
	if m == nil {
		return Insert{}, true, fmt.Errorf("unrecognised insert statement")
	}
	var cols []string
	for _, c := range strings.Split(m[2], ",") {
		c = strings.ToLower(strings.Trim(strings.TrimSpace(c), "\"'`"))
		alias, ok := columnAlias[c]
		if !ok {
			return Insert{}, true, fmt.Errorf("unknown column %q", c)
		}
		cols = append(cols, alias)
	}
	vals, err := parseValues(m[3])
	if err != nil {
		return Insert{}, true, err
	}
	if len(vals) != len(cols) {
		return Insert{}, true, errNoValues
	}
	var ins Insert
	seen := map[string]bool{}
	for i, c := range cols {
		v := vals[i]
		if c == "geom" {
			if v.fn != "" && !geomFuncs[v.fn] {
				return Insert{}, true, fmt.Errorf("unsupported geometry function %q", v.fn)
			}
			if v.srid != 0 && v.srid != model.SRID {
				return Insert{}, true, fmt.Errorf("unsupported srid %d", v.srid)
			}
			ins.WKT = v.text
		} else {
			if v.fn != "" {
				return Insert{}, true, fmt.Errorf("column %s expects a string literal", c)
			}
			if c == "name" {
				ins.Name = v.text
			} else {
				ins.Qualifier = v.text
			}
		}
		seen[c] = true
	}
	if !seen["name"] || !seen["qualifier"] || !seen["geom"] {
		return Insert{}, true, fmt.Errorf("insert must set name, qualifier and geom")
	}
	return ins, true, nil
}

// value：字符串字面量，或形如 F('WKT', 4326) 的几何构造调用
type value struct {
	text string
	fn   string
	srid int
}

// parseValues：解析 VALUES 括号内的逗号分隔表达式
func parseValues(s string) ([]value, error) {
	p := &lexer{s: s}
	var out []value
	for {
		p.skipSpace()
		if p.eof() {
			if len(out) == 0 {
				return nil, errNoValues
			}
			return nil, fmt.Errorf("trailing comma in values")
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		if p.s[p.i] != ',' {
			return nil, fmt.Errorf("unexpected %q in values", p.s[p.i])
		}
		p.i++
	}
}

type lexer struct {
	s string
	i int
}

func (l *lexer) eof() bool { return l.i >= len(l.s) }

func (l *lexer) skipSpace() {
	for !l.eof() && strings.ContainsRune(" \t\r\n", rune(l.s[l.i])) {
		l.i++
	}
}

func (l *lexer) value() (value, error) {
	c := l.s[l.i]
	if c == '\'' || c == '"' {
		t, err := l.str()
		return value{text: t}, err
	}
	start := l.i
	for !l.eof() && isIdent(l.s[l.i]) {
		l.i++
	}
	if l.i == start {
		return value{}, fmt.Errorf("unexpected %q in values", c)
	}
	fn := strings.ToLower(l.s[start:l.i])
	l.skipSpace()
	if l.eof() || l.s[l.i] != '(' {
		return value{}, fmt.Errorf("bare identifier %q in values", fn)
	}
	l.i++
	l.skipSpace()
	if l.eof() || (l.s[l.i] != '\'' && l.s[l.i] != '"') {
		return value{}, fmt.Errorf("%s expects a WKT literal", fn)
	}
	wkt, err := l.str()
	if err != nil {
		return value{}, err
	}
	v := value{text: wkt, fn: fn}
	l.skipSpace()
	if !l.eof() && l.s[l.i] == ',' {
		l.i++
		l.skipSpace()
		start := l.i
		for !l.eof() && l.s[l.i] >= '0' && l.s[l.i] <= '9' {
			l.i++
		}
		if start == l.i {
			return value{}, fmt.Errorf("%s expects a numeric srid", fn)
		}
		v.srid, _ = strconv.Atoi(l.s[start:l.i])
		l.skipSpace()
	}
	if l.eof() || l.s[l.i] != ')' {
		return value{}, fmt.Errorf("unterminated %s call", fn)
	}
	l.i++
	return v, nil
}

// str：读取引号字面量，成对引号视为转义
func (l *lexer) str() (string, error) {
	q := l.s[l.i]
	l.i++
	var b strings.Builder
	for !l.eof() {
		c := l.s[l.i]
		l.i++
		if c == q {
			if !l.eof() && l.s[l.i] == q {
				b.WriteByte(q)
				l.i++
				continue
			}
			return b.String(), nil
		}
		b.WriteByte(c)
	}
	return "", fmt.Errorf("unterminated string literal")
}

func isIdent(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
