package page

import "fmt"

// Kind 选择器类型
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
)

// Selector 一条元素查找策略
type Selector struct {
	Kind Kind
	Expr string
}

// CSS 构造 CSS 选择器策略
func CSS(expr string) Selector {
	return Selector{Kind: KindCSS, Expr: expr}
}

// XPath 构造 XPath 选择器策略
func XPath(expr string) Selector {
	return Selector{Kind: KindXPath, Expr: expr}
}

func (s Selector) String() string {
	if s.Kind == KindXPath {
		return fmt.Sprintf("xpath(%s)", s.Expr)
	}
	return fmt.Sprintf("css(%s)", s.Expr)
}

// Strategies 按优先级排列的查找策略，越靠前越优先
type Strategies []Selector
