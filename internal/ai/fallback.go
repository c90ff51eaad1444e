// ABOUTME: Deterministic canned responses used when the AI backend is unavailable
// ABOUTME: Templates are parameterized by the request payload where the mode allows it

package ai

import (
	"fmt"
	"slices"
)

const imageFallbackText = "根据您上传的图片，这似乎是一道关于【二次函数】的数学题。\n\n" +
	"题目要求求解抛物线的顶点坐标。\n\n" +
	"解析步骤：\n" +
	"1. 将方程化为顶点式 y = a(x-h)² + k\n" +
	"2. 读取 (h, k) 即为顶点坐标\n\n" +
	"答案是 (-1, 3)。"

const imageFallbackAnalysis = "二次函数; 顶点坐标; 抛物线"

var (
	chatFallbackQuestions = []string{
		"能举个例子吗？",
		"这个概念在物理中有什么应用？",
	}

	imageFallbackQuestions = []string{
		"如何求二次函数的对称轴？",
		"二次函数与x轴的交点怎么求？",
		"抛物线的开口方向由什么决定？",
	}

	speechFallbackSuggestions = []string{
		"换种方式再讲一次",
		"生成板书讲义",
		"继续追问一个练习题",
	}
)

// Fallback builds the local response for mode. Unknown modes get the chat template.
func Fallback(mode Mode, payload string) Response {
	var resp Response
	switch mode {
	case ModeImage:
		resp = Response{
			Text:             imageFallbackText,
			Analysis:         imageFallbackAnalysis,
			RelatedQuestions: slices.Clone(imageFallbackQuestions),
		}
	case ModeSpeech:
		resp = Response{
			Text: fmt.Sprintf("「%s」的问题我已经收到，现在为你进行讲解。\n\n"+
				"1. 梳理关键信息\n2. 给出推理步骤\n3. 输出总结与下一步建议", payload),
			RelatedQuestions: slices.Clone(speechFallbackSuggestions),
		}
	default:
		resp = Response{
			Text: fmt.Sprintf("针对您的问题 \"%s\"，\n这里是详细的解答...\n\n"+
				"（此处为模拟的AI回答，实际应用中将接入大模型API）\n\n"+
				"关键点在于理解核心概念。", payload),
			RelatedQuestions: slices.Clone(chatFallbackQuestions),
		}
	}
	resp.Source = SourceFallback
	return resp
}
