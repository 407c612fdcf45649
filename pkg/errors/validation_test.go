package errors

import (
	"strings"
	"testing"
)

func TestValidateAssetPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"engine path", "/Game/Characters/BP_Hero", false},
		{"relative file", "Content/Maps/Lobby.bp.yaml", false},
		{"dots in name", "/Game/v1.2/BP_Door", false},

		{"empty", "", true},
		{"too long", "/" + strings.Repeat("a", 600), true},
		{"parent segment", "/Game/../Engine/BP", true},
		{"null byte", "/Game/BP\x00", true},
		{"backslash", "Game\\BP_Hero", true},
		{"newline", "/Game/BP\nHero", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssetPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAssetPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateAssetPath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"K2Node_CallFunction_0", false},
		{"Event BeginPlay", false},
		{"", true},
		{"   ", true},
		{"Node#1", true},
		{"bad\x01name", true},
		{strings.Repeat("n", 300), true},
	}

	for _, tt := range tests {
		err := ValidateNodeName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateClassName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"Actor", false},
		{"BP_Hero_C", false},
		{"SKEL_BP_Hero_C", false},
		{"_Private", false},
		{"", true},
		{"9Lives", true},
		{"My Class", true},
		{"/Script/Engine.Actor", true},
	}

	for _, tt := range tests {
		err := ValidateClassName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateClassName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateOutputDir(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"docs", false},
		{"./out/docs", false},
		{"/tmp/bpdoc", false},
		{"", true},
		{"/", true},
		{".", true},
		{"~", true},
	}

	for _, tt := range tests {
		err := ValidateOutputDir(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOutputDir(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
