// package dml
package dml

import (
	"fmt"
	"strings"
)

// Oracle 12.2+ 标识符最长 128
const maxIdentLen = 128

var globalVerifyObj Verify

func init() {
	globalVerifyObj = newDefaultVerify()
}

// SetGlobalVerify 替换默认的表名、字段名校验
func SetGlobalVerify(v Verify) {
	if v == nil {
		panic("verify cannot nil")
	}
	globalVerifyObj = v
}

type Verify interface {
	VerifyTableName(name string) error
	VerifyFieldName(name string) error
}

type defaultVerify struct {
}

func (d *defaultVerify) VerifyTableName(name string) error {
	for _, part := range strings.Split(name, ".") {
		if err := verifyIdent("table", part); err != nil {
			return err
		}
	}
	return nil
}

func (d *defaultVerify) VerifyFieldName(name string) error {
	return verifyIdent("field", name)
}

func verifyIdent(kind, name string) error {
	name = unquoteIdent(name)
	if name == "" {
		return fmt.Errorf("the %s name is empty", kind)
	}
	if len(name) > maxIdentLen {
		return fmt.Errorf("the %s name[%s] is too long. the maximum requirement is %d", kind, name, maxIdentLen)
	}

	for _, ch := range name {
		if !(ch == '_' || ch == '$' || ch == '#' || ch == '-' ||
			(ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
			return fmt.Errorf("%s name[%s] cannot have \"%c\", "+
				"customize verify as needed to achieve interface \"Verify\"", kind, name, ch)
		}
	}

	return nil
}

func newDefaultVerify() Verify {
	v := new(defaultVerify)
	return v
}
