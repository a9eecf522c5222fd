// Package grading builds composition-grading prompts, calls the model
// gateway and parses structured grading results out of the reply.
package grading

import "fmt"

// Options control how a composition is graded.
type Options struct {
	Grade        string // primary | middle | high
	MaxScore     int
	CommentStyle string // encouraging | strict | balanced
}

func (o Options) withDefaults() Options {
	if o.Grade == "" {
		o.Grade = "primary"
	}
	if o.MaxScore <= 0 {
		o.MaxScore = 100
	}
	if o.CommentStyle == "" {
		o.CommentStyle = "encouraging"
	}
	return o
}

var gradeStandards = map[string]string{
	"primary": "小学作文评分标准",
	"middle":  "中考作文评分标准",
	"high":    "高考作文评分标准",
}

var styleGuides = map[string]string{
	"encouraging": "以鼓励为主，先肯定优点，再委婉指出不足",
	"strict":      "严格要求，直接指出问题",
	"balanced":    "平衡优缺点，客观评价",
}

// BuildPrompt renders the grading instruction for one composition.
func BuildPrompt(text string, opts Options) string {
	opts = opts.withDefaults()

	standard, ok := gradeStandards[opts.Grade]
	if !ok {
		standard = gradeStandards["primary"]
	}
	style, ok := styleGuides[opts.CommentStyle]
	if !ok {
		style = styleGuides["encouraging"]
	}

	return fmt.Sprintf(`你是一个专业的语文老师，请根据%s批改这篇作文。

【评分要求】
- 满分：%d分
- 评价风格：%s

【批改内容】
1. 给出总分（0-%d）
2. 找出错别字和病句（如有）
3. 指出文章亮点
4. 指出需要改进的地方
5. 写一段评语（100-200字）

【输出格式】
请严格按照以下JSON格式输出：
{
  "score": 数字,
  "maxScore": %d,
  "errors": [{"type": "typo"或"sentence", "text": "原文", "suggestion": "建议", "position": 位置}],
  "strengths": ["亮点1", "亮点2"],
  "weaknesses": ["不足1", "不足2"],
  "comment": "评语内容"
}

【作文内容】
%s`, standard, opts.MaxScore, style, opts.MaxScore, opts.MaxScore, text)
}
