// Package doc evaluates calculator inputs embedded in markdown.
//
// Any fenced code block whose info string is "tally" is treated as one input.
// A final line of the form "# => <sum>" or "# => <ERROR_CODE>" is an
// expectation and is not part of the input:
//
//	```tally
//	//;
//	1;2
//	# => 3
//	```
package doc

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/tally/internal/config"
	"github.com/hpungsan/tally/internal/errors"
	"github.com/hpungsan/tally/internal/ops"
)

// Language is the fenced code block info string that marks an input.
const Language = "tally"

const expectPrefix = "# =>"

// Block is one calculator input found in a markdown document.
type Block struct {
	Line   int    `json:"line"` // 1-based line of the first content line, 0 if the block is empty
	Input  string `json:"input"`
	Expect string `json:"expect,omitempty"`
}

// Extract returns every tally block in source, in document order.
func Extract(source []byte) []Block {
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []Block
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok || string(fenced.Language(source)) != Language {
			return ast.WalkContinue, nil
		}
		blocks = append(blocks, blockFrom(fenced, source))
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

func blockFrom(fenced *ast.FencedCodeBlock, source []byte) Block {
	var b Block
	lines := fenced.Lines()
	var content []string
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if i == 0 {
			b.Line = bytes.Count(source[:seg.Start], []byte("\n")) + 1
		}
		content = append(content, string(seg.Value(source)))
	}

	if n := len(content); n > 0 {
		last := strings.TrimSpace(content[n-1])
		if expect, ok := strings.CutPrefix(last, expectPrefix); ok {
			b.Expect = strings.TrimSpace(expect)
			content = content[:n-1]
		}
	}

	b.Input = strings.TrimSuffix(strings.Join(content, ""), "\n")
	return b
}

// BlockResult is the outcome of evaluating one block.
type BlockResult struct {
	Block
	Result   *ops.EvaluateOutput `json:"result"`
	Passed   *bool               `json:"passed,omitempty"` // nil when the block has no expectation
	Mismatch string              `json:"mismatch,omitempty"`
}

// CheckOutput contains the results for a whole document.
type CheckOutput struct {
	Blocks []BlockResult `json:"blocks"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
}

// Check evaluates every tally block in source and compares expectations.
func Check(ctx context.Context, database *sql.DB, cfg *config.Config, source []byte) (*CheckOutput, error) {
	out := &CheckOutput{Blocks: []BlockResult{}}
	for _, b := range Extract(source) {
		result, err := ops.Evaluate(ctx, database, cfg, ops.EvaluateInput{Input: b.Input, Source: "doc"})
		if err != nil {
			return nil, fmt.Errorf("block at line %d: %w", b.Line, err)
		}

		br := BlockResult{Block: b, Result: result}
		if b.Expect != "" {
			mismatch := compare(b.Expect, result)
			passed := mismatch == ""
			br.Passed = &passed
			br.Mismatch = mismatch
			if passed {
				out.Passed++
			} else {
				out.Failed++
			}
		}
		out.Blocks = append(out.Blocks, br)
	}
	return out, nil
}

// compare returns a description of how result differs from expect, or "".
func compare(expect string, result *ops.EvaluateOutput) string {
	got := describe(result)
	if want, err := strconv.ParseInt(expect, 10, 64); err == nil {
		if result.Sum == nil || *result.Sum != want {
			return fmt.Sprintf("want %d, got %s", want, got)
		}
		return ""
	}
	if result.Error == nil || result.Error.Code != errors.ErrorCode(strings.ToUpper(expect)) {
		return fmt.Sprintf("want %s, got %s", strings.ToUpper(expect), got)
	}
	return ""
}

func describe(result *ops.EvaluateOutput) string {
	if result.Error != nil {
		return string(result.Error.Code)
	}
	if result.Sum != nil {
		return strconv.FormatInt(*result.Sum, 10)
	}
	return "nothing"
}
