package domain

import "testing"

// TestOverallFromModules verifies the status folding rules.
func TestOverallFromModules(t *testing.T) {
	cases := []struct {
		name     string
		statuses map[ModuleName]ModuleStatus
		want     OverallStatus
	}{
		{
			name: "all idle",
			statuses: map[ModuleName]ModuleStatus{
				ModuleTorch: ModuleStatusIdle, ModuleWhisperX: ModuleStatusIdle, ModulePyannote: ModuleStatusIdle,
			},
			want: OverallIdle,
		},
		{
			name: "all ready",
			statuses: map[ModuleName]ModuleStatus{
				ModuleTorch: ModuleStatusReady, ModuleWhisperX: ModuleStatusReady, ModulePyannote: ModuleStatusReady,
			},
			want: OverallReady,
		},
		{
			name: "mixed ready and failed",
			statuses: map[ModuleName]ModuleStatus{
				ModuleTorch: ModuleStatusReady, ModuleWhisperX: ModuleStatusReady, ModulePyannote: ModuleStatusFailed,
			},
			want: OverallPartial,
		},
		{
			name: "all failed",
			statuses: map[ModuleName]ModuleStatus{
				ModuleTorch: ModuleStatusFailed, ModuleWhisperX: ModuleStatusFailed, ModulePyannote: ModuleStatusFailed,
			},
			want: OverallFailed,
		},
		{
			name: "loading wins over everything",
			statuses: map[ModuleName]ModuleStatus{
				ModuleTorch: ModuleStatusReady, ModuleWhisperX: ModuleStatusLoading, ModulePyannote: ModuleStatusFailed,
			},
			want: OverallPreloading,
		},
		{
			name: "single module warmed, rest untouched",
			statuses: map[ModuleName]ModuleStatus{
				ModuleTorch: ModuleStatusReady, ModuleWhisperX: ModuleStatusIdle, ModulePyannote: ModuleStatusIdle,
			},
			want: OverallPartial,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			modules := make(map[ModuleName]ModuleState, len(tc.statuses))
			for name, status := range tc.statuses {
				modules[name] = ModuleState{Name: name, Status: status}
			}
			if got := OverallFromModules(modules); got != tc.want {
				t.Fatalf("overall = %s, want %s", got, tc.want)
			}
		})
	}
}

// TestDependentModulesExcludesShared checks the fixed scheduling split.
func TestDependentModulesExcludesShared(t *testing.T) {
	for _, name := range DependentModules() {
		if name == SharedModule {
			t.Fatalf("dependent set contains shared module %s", name)
		}
	}
	if len(DependentModules()) != len(AllModules())-1 {
		t.Fatalf("dependent count = %d, want %d", len(DependentModules()), len(AllModules())-1)
	}
}
