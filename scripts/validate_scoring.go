// 离线校验问卷评分配置脚本
//
// 读取 YAML 格式的问卷定义、评分配置和可选的样例答案，
// 在发布问卷前检查区间是否覆盖全部可得分数，并试算样例答案。
//
// 用法: go run scripts/validate_scoring.go scripts/testdata/gad7.yaml

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"mindscreen_backend/internal/scoring"
	"os"

	"gopkg.in/yaml.v3"
)

type sample struct {
	Name    string           `json:"name"`
	Answers []scoring.Answer `json:"answers"`
}

type document struct {
	Questionnaire scoring.Questionnaire `json:"questionnaire"`
	Config        scoring.Config        `json:"config"`
	Samples       []sample              `json:"samples"`
}

// load 先按 YAML 解析，再借助 json 标签映射到评分类型
func load(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("用法: go run scripts/validate_scoring.go <file.yaml>")
	}

	doc, err := load(os.Args[1])
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}

	if err := scoring.ValidateConfig(doc.Questionnaire, doc.Config); err != nil {
		log.Fatalf("评分配置无效: %v", err)
	}
	lo, hi := scoring.AttainableBounds(doc.Questionnaire, doc.Config)
	fmt.Printf("%s: 配置有效，可得分数范围 [%v, %v]\n", doc.Questionnaire.Title, lo, hi)

	failed := false
	for _, s := range doc.Samples {
		res, err := scoring.Evaluate(doc.Questionnaire, s.Answers, doc.Config)
		if err != nil {
			failed = true
			fmt.Printf("  %-20s 错误: %v\n", s.Name, err)
			continue
		}
		fmt.Printf("  %-20s 得分 %-6v 等级 %-10s 复核 %v %v\n", s.Name, res.Score, res.RiskLevel, res.Flagged, res.FlagReasons)
	}
	if failed {
		os.Exit(1)
	}
}
