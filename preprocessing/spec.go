package preprocessing

import (
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Role は入力列の役割
type Role string

const (
	// RoleNumeric は標準化される数値列
	RoleNumeric Role = "numeric"
	// RoleCategorical はOne-Hotエンコードされるカテゴリ列
	RoleCategorical Role = "categorical"
	// RolePassthrough はそのまま出力される列
	RolePassthrough Role = "passthrough"
)

// UnlistedPolicy はFeatureSpecに宣言されていない列の扱い
type UnlistedPolicy string

const (
	// UnlistedDrop は未宣言列を出力から除外する（デフォルト）
	UnlistedDrop UnlistedPolicy = "drop"
	// UnlistedPassthrough は未宣言列をpassthrough列の後ろにデータセットの列順で追加する
	UnlistedPassthrough UnlistedPolicy = "passthrough"
	// UnlistedError は未宣言列があればSchemaMismatchとする
	UnlistedError UnlistedPolicy = "error"
)

// ParseUnlistedPolicy は文字列をUnlistedPolicyに変換する。空文字はUnlistedDrop。
func ParseUnlistedPolicy(s string) (UnlistedPolicy, error) {
	switch UnlistedPolicy(s) {
	case "", UnlistedDrop:
		return UnlistedDrop, nil
	case UnlistedPassthrough, UnlistedError:
		return UnlistedPolicy(s), nil
	default:
		return "", errors.NewValidationError("on_unlisted", "must be one of drop, passthrough, error", s)
	}
}

// FeatureSpec は呼び出し側が与える列の役割割り当て
//
// 列の役割はデータから推論せず、この宣言だけで決まる。
type FeatureSpec struct {
	Numeric     []string       `yaml:"numeric" json:"numeric"`
	Categorical []string       `yaml:"categorical" json:"categorical"`
	Passthrough []string       `yaml:"passthrough" json:"passthrough"`
	OnUnlisted  UnlistedPolicy `yaml:"on_unlisted" json:"on_unlisted" split_words:"true"`
}

func (s FeatureSpec) clone() FeatureSpec {
	return FeatureSpec{
		Numeric:     copyStrings(s.Numeric),
		Categorical: copyStrings(s.Categorical),
		Passthrough: copyStrings(s.Passthrough),
		OnUnlisted:  s.OnUnlisted,
	}
}

// Roles は未宣言列ポリシー適用後の確定した役割割り当て
type Roles struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Passthrough []string `json:"passthrough"`
}

// Count は役割を持つ列の総数を返す
func (r Roles) Count() int {
	return len(r.Numeric) + len(r.Categorical) + len(r.Passthrough)
}

// All は全ての列を numeric, categorical, passthrough の順に返す
func (r Roles) All() []string {
	out := make([]string, 0, r.Count())
	out = append(out, r.Numeric...)
	out = append(out, r.Categorical...)
	return append(out, r.Passthrough...)
}

// RoleOf は列の役割を返す
func (r Roles) RoleOf(column string) (Role, bool) {
	for _, g := range r.groups() {
		for _, c := range g.columns {
			if c == column {
				return g.role, true
			}
		}
	}
	return "", false
}

func (r Roles) clone() Roles {
	return Roles{
		Numeric:     copyStrings(r.Numeric),
		Categorical: copyStrings(r.Categorical),
		Passthrough: copyStrings(r.Passthrough),
	}
}

type roleGroup struct {
	role    Role
	columns []string
}

func (r Roles) groups() []roleGroup {
	return []roleGroup{
		{RoleNumeric, r.Numeric},
		{RoleCategorical, r.Categorical},
		{RolePassthrough, r.Passthrough},
	}
}

// validate は列名の重複・空文字・役割の重複を検出する。
// width はエラーメッセージ用のデータセット列数。
func (r Roles) validate(width int) error {
	seen := make(map[string]Role, r.Count())
	for _, g := range r.groups() {
		for _, c := range g.columns {
			if c == "" {
				return errors.NewSchemaMismatchError(c, string(g.role), "empty column name", width)
			}
			if prev, dup := seen[c]; dup {
				reason := "assigned to both " + string(prev) + " and " + string(g.role)
				if prev == g.role {
					reason = "listed twice in " + string(g.role)
				}
				return errors.NewSchemaMismatchError(c, string(g.role), reason, width)
			}
			seen[c] = g.role
		}
	}
	return nil
}

// Classify は FeatureSpec をデータセットに照合し、確定した役割割り当てを返す
//
// 宣言列が存在しない場合、または同じ列が2つの役割に割り当てられている場合は
// SchemaMismatch。未宣言列は spec.OnUnlisted に従って除外・passthrough・エラーとなる。
// exclude に含まれる列（目的変数など）は未宣言列として扱わず、役割を持つこともできない。
//
// 副作用はない。学習・変換の前に必ず実行する。
func Classify(spec FeatureSpec, ds *dataset.Dataset, exclude ...string) (Roles, error) {
	policy, err := ParseUnlistedPolicy(string(spec.OnUnlisted))
	if err != nil {
		return Roles{}, err
	}

	roles := Roles{
		Numeric:     copyStrings(spec.Numeric),
		Categorical: copyStrings(spec.Categorical),
		Passthrough: copyStrings(spec.Passthrough),
	}
	if err := roles.validate(ds.Width()); err != nil {
		return Roles{}, err
	}

	excluded := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		excluded[c] = true
	}

	declared := make(map[string]bool, roles.Count())
	for _, g := range roles.groups() {
		for _, c := range g.columns {
			if excluded[c] {
				return Roles{}, errors.NewSchemaMismatchError(c, string(g.role), "excluded column (target) cannot have a feature role", ds.Width())
			}
			if !ds.Has(c) {
				return Roles{}, errors.NewSchemaMismatchError(c, string(g.role), "declared column is absent from dataset", ds.Width())
			}
			declared[c] = true
		}
	}

	for _, c := range ds.Columns() {
		if declared[c] || excluded[c] {
			continue
		}
		switch policy {
		case UnlistedPassthrough:
			roles.Passthrough = append(roles.Passthrough, c)
		case UnlistedError:
			return Roles{}, errors.NewSchemaMismatchError(c, "unlisted", "column is not declared in the feature spec", ds.Width())
		}
	}

	if roles.Count() == 0 {
		return Roles{}, errors.NewValidationError("features", "no column has a role", spec)
	}
	return roles, nil
}

// checkColumns は確定済みの役割割り当ての全列がデータセットに存在することを確認する
func checkColumns(roles Roles, ds *dataset.Dataset) error {
	for _, g := range roles.groups() {
		for _, c := range g.columns {
			if !ds.Has(c) {
				return errors.NewSchemaMismatchError(c, string(g.role), "fitted column is absent from dataset", ds.Width())
			}
		}
	}
	return nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
