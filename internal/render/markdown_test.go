package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "ordered list",
			src:      "解析步骤：\n\n1. 化为顶点式\n2. 读取顶点",
			contains: []string{"<ol>", "<li>化为顶点式</li>"},
		},
		{
			name:     "hard wraps",
			src:      "第一行\n第二行",
			contains: []string{"第一行<br>"},
		},
		{
			name:     "emphasis",
			src:      "关键点在于**核心概念**",
			contains: []string{"<strong>核心概念</strong>"},
		},
		{
			name:     "raw html escaped",
			src:      "<script>alert(1)</script>",
			excludes: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Markdown(tt.src)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, got, bad)
			}
		})
	}
}
