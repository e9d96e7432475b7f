package predicate

import "strings"

// Qualifier decides how a parameter name becomes a column reference.
type Qualifier interface {
	Qualify(param string) (string, error)
}

type fixedAlias struct{ alias string }

// FixedAlias prefixes every parameter with alias, e.g. "sf.".
func FixedAlias(alias string) Qualifier { return fixedAlias{alias: alias} }

func (q fixedAlias) Qualify(param string) (string, error) {
	return prefix(q.alias, param)
}

type perParameter struct{}

// PerParameter uses the parameter as supplied: "table.col" or bare "col".
func PerParameter() Qualifier { return perParameter{} }

func (perParameter) Qualify(param string) (string, error) {
	if err := checkColumn(param, param); err != nil {
		return "", err
	}
	return param, nil
}

type mainTable struct{ table string }

// MainTable prefixes every parameter with the route's main table.
func MainTable(table string) Qualifier { return mainTable{table: table} }

func (q mainTable) Qualify(param string) (string, error) {
	return prefix(q.table, param)
}

func prefix(table, param string) (string, error) {
	if err := checkIdent(param, param); err != nil {
		return "", err
	}
	if strings.TrimSpace(table) == "" {
		return param, nil
	}
	return table + "." + param, nil
}
