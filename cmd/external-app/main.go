package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/pkg/engine"
)

func main() {
	catalogPath := flag.String("catalog", "pkg/rules/catalog.yaml", "rulepack catalog (YAML or JSON)")
	declPath := flag.String("declaration", "", "declaration JSON file")
	stage := flag.String("stage", "", "also run the process rules of this stage")
	strict := flag.Bool("strict", false, "strict mode default")
	flag.Parse()

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("   PEDIMENTO RULES CLI - DIAGNOSTIC TOOL")
	fmt.Println(strings.Repeat("=", 60))

	if *declPath == "" {
		fmt.Println("\nusage: external-app -catalog <file> -declaration <file> [-stage export] [-strict]")
		os.Exit(2)
	}

	ctx := context.Background()
	svc, err := engine.NewFromFile(ctx, *catalogPath, engine.Options{StrictDefault: *strict})
	if err != nil {
		fmt.Printf("\nCATALOG ERROR: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*declPath)
	if err != nil {
		fmt.Printf("\nDECLARATION ERROR: %v\n", err)
		os.Exit(1)
	}
	var decl engine.Declaration
	if err := json.Unmarshal(data, &decl); err != nil {
		fmt.Printf("\nDECLARATION ERROR: %v\n", err)
		os.Exit(1)
	}

	plan, report, _, err := svc.Run(ctx, &decl)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Printf("\nCONFIGURATION ERROR: %s\n", cfgErr.Reason)
		} else {
			fmt.Printf("\nCRITICAL ERROR: %v\n", err)
		}
		os.Exit(1)
	}

	var stageErr error
	if *stage != "" {
		stageErr = svc.CheckStage(&decl, engine.Stage(*stage))
	}

	displayExecutionSummary(plan, report, *stage, stageErr)
	if len(report.Violations) > 0 || stageErr != nil {
		os.Exit(3)
	}
}

func displayExecutionSummary(plan *engine.Plan, report engine.Report, stage string, stageErr error) {
	fmt.Println("\n[1. EXECUTION LOG]")
	for _, step := range plan.ExecutionLog {
		fmt.Printf("   [%-10s] %s\n", strings.ToUpper(string(step.Phase)), step.Message)
	}

	fmt.Println("\n[2. SELECTOR TRACE]")
	if len(plan.Selector.Candidates) == 0 {
		fmt.Println("   no selector evaluated")
	}
	for _, c := range plan.Selector.Candidates {
		mark := " "
		if c.SelectorID == plan.Selector.WinnerSelectorID {
			mark = "*"
		}
		note := ""
		if c.UnknownScenario {
			note = " (unknown scenario)"
		}
		fmt.Printf("   %s selector %-4d priority %-4d matched=%-5v -> %s%s\n", mark, c.SelectorID, c.Priority, c.Matched, c.Scenario, note)
	}
	if plan.Selector.Fallback != "" {
		fmt.Printf("   fallback: %s\n", plan.Selector.Fallback)
	}

	fmt.Println("\n[3. RECORD PLAN]")
	codes := make([]string, 0, len(plan.States))
	for code := range plan.States {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		s := plan.States[code]
		policy := "optional"
		switch {
		case s.Forbidden:
			policy = "FORBIDDEN"
		case s.Required:
			policy = "required"
		}
		maxOcc := "-"
		if s.Max > 0 {
			maxOcc = fmt.Sprint(s.Max)
		}
		fmt.Printf("   %s  %-9s min %-3d max %-3s %s\n", code, policy, s.Min, maxOcc, s.Identifier)
	}

	fmt.Println("\n[4. VIOLATIONS]")
	if len(report.Violations) == 0 {
		fmt.Println("   none")
	}
	for _, v := range report.Violations {
		fmt.Printf("   [%s] %s\n", v.Kind, v.Message)
	}
	for _, w := range report.Warnings {
		fmt.Printf("   warning: %s\n", w)
	}
	if stage != "" {
		fmt.Printf("\n[5. STAGE %s]\n", strings.ToUpper(stage))
		if stageErr == nil {
			fmt.Println("   ok")
		} else {
			for _, line := range strings.Split(stageErr.Error(), "\n") {
				fmt.Printf("   %s\n", line)
			}
		}
	}

	fmt.Println("\n[SUMMARY]")
	status := "ACCEPTED"
	if len(report.Violations) > 0 || stageErr != nil {
		status = "REJECTED"
	}
	rulepack := "-"
	if plan.Rulepack != nil {
		rulepack = plan.Rulepack.Code
	}
	fmt.Printf("   Status:         %s\n", status)
	fmt.Printf("   Rulepack:       %s\n", rulepack)
	fmt.Printf("   Scenario:       %s\n", plan.Scenario)
	fmt.Printf("   Structure rule: %s\n", plan.StructureRule)
	fmt.Printf("   Strict mode:    %v\n", plan.Strict)
	fmt.Println(strings.Repeat("=", 60))
}
