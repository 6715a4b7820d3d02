package train

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
Dependency constraints use a small pip-style grammar:

Requirement := Name ( Op Version )?
Name        := <identifier, may contain dots, dashes, underscores>
Op          := "==" | "!=" | ">=" | "<=" | ">" | "<"
Version     := <identifier, same character set as Name>
*/

var (
	requirementLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Op", Pattern: `==|!=|>=|<=|>|<`},
		{Name: "Name", Pattern: `[A-Za-z0-9][A-Za-z0-9._-]*`},
		{Name: "whitespace", Pattern: `\s+`},
	})

	requirementParser = participle.MustBuild[Requirement](
		participle.Lexer(requirementLexer),
	)
)

type Requirement struct {
	Name    string `@Name`
	Op      string `( @Op`
	Version string `  @Name )?`
}

func (r Requirement) String() string {
	if r.Op == "" {
		return r.Name
	}
	return r.Name + r.Op + r.Version
}

func ParseRequirement(entry string) (Requirement, error) {
	req, err := requirementParser.ParseString("", entry)
	if err != nil {
		return Requirement{}, fmt.Errorf("error parsing requirement '%s': %w", entry, err)
	}
	return *req, nil
}

func ParseRequirements(entries []string) ([]Requirement, error) {
	requirements := make([]Requirement, 0, len(entries))
	for _, entry := range entries {
		req, err := ParseRequirement(entry)
		if err != nil {
			return nil, err
		}
		requirements = append(requirements, req)
	}
	return requirements, nil
}
