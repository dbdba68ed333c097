package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askQuestion string

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "向助手提问",
	Long:  "基于已建好的索引回答问题。指定 -q 单次提问，不指定则进入交互式问答，输入 exit 或 quit 退出。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		a, err := p.service.GetOrInit(ctx)
		if err != nil {
			return fmt.Errorf("assistant not ready: %w (run 'automentor ingest' first)", err)
		}

		ask := func(question string) error {
			answer, err := a.Ask(ctx, question)
			if err != nil {
				return err
			}
			fmt.Println(answer.Answer)
			if len(answer.Sources) > 0 {
				fmt.Printf("\nSources: %s\n", strings.Join(answer.Sources, ", "))
			}
			return nil
		}

		if askQuestion != "" {
			return ask(askQuestion)
		}

		// 交互式问答，对话记忆在会话内持续生效
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			if question == "exit" || question == "quit" {
				return nil
			}
			if err := ask(question); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			fmt.Println()
		}
	},
}

func init() {
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "单次提问的问题，留空进入交互模式")
	rootCmd.AddCommand(askCmd)
}
