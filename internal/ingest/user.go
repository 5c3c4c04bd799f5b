package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"track-spatial/internal/logger"
	"track-spatial/internal/store"
)

var (
	// ErrUserNotFound：用户不存在且当前为非交互模式
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDeclined：交互确认时拒绝创建用户
	ErrUserDeclined = errors.New("user creation declined")
)

// Confirmer：创建新用户前的确认回调；nil 表示非交互模式
type Confirmer func(name string) (bool, error)

// AutoConfirm：不询问直接创建
func AutoConfirm(string) (bool, error) { return true, nil }

// 文档注释：解析导入用户（整批共享，处理任何文件之前执行）
// 背景：用户不存在时，非交互模式直接失败；交互模式询问后创建，拒绝则终止整批。
// 异常：缺少必需表时返回 migrate.ErrSchemaMissing，进程应直接退出。
func ResolveUser(ctx context.Context, st *store.Store, name string, confirm Confirmer, log *slog.Logger) (int64, error) {
	log = logger.Or(log)
	if err := st.CheckSchema(ctx); err != nil {
		return 0, err
	}
	id, ok, err := st.UserID(ctx, name)
	if err != nil {
		return 0, err
	}
	if ok {
		return id, nil
	}
	if confirm == nil {
		log.Error("user_not_found", "user", name)
		return 0, fmt.Errorf("%w: %q", ErrUserNotFound, name)
	}
	yes, err := confirm(name)
	if err != nil {
		return 0, err
	}
	if !yes {
		log.Warn("user_declined", "user", name)
		return 0, fmt.Errorf("%w: %q", ErrUserDeclined, name)
	}
	return st.InsertUser(ctx, name)
}

// PromptConfirmer：在终端上反复询问 y/n，直到得到明确答复；输入结束视为拒绝
func PromptConfirmer(in io.Reader, out io.Writer) Confirmer {
	rd := bufio.NewReader(in)
	return func(name string) (bool, error) {
		for {
			fmt.Fprintf(out, "User %q does not exist. Create it? [y/n] ", name)
			line, err := rd.ReadString('\n')
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				return true, nil
			case "n", "no":
				return false, nil
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return false, nil
				}
				return false, err
			}
		}
	}
}
