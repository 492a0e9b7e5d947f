package core

import (
	"errors"
	"testing"
)

func TestNewPanelConfiguresPWM(t *testing.T) {
	pwm := NewMockPWMDriver()
	panel, err := NewPanel(pwm)
	if err != nil {
		t.Fatalf("NewPanel failed: %v", err)
	}

	cfg, ok := pwm.configured[DefaultPanelPin]
	if !ok {
		t.Fatalf("Pin %d was not configured", DefaultPanelPin)
	}
	if cfg[0] != PanelFrequency || cfg[1] != uint32(MaxBrightness) {
		t.Errorf("Expected %d Hz / wrap %d, got %d Hz / wrap %d", PanelFrequency, MaxBrightness, cfg[0], cfg[1])
	}

	if panel.Brightness() != 0 || panel.Output() != 0 {
		t.Errorf("Panel should boot dark, got brightness=%d output=%d", panel.Brightness(), panel.Output())
	}
	if pwm.levels[DefaultPanelPin] != 0 {
		t.Errorf("Expected PWM level 0 at boot, got %d", pwm.levels[DefaultPanelPin])
	}
}

func TestPanelWithPin(t *testing.T) {
	pwm := NewMockPWMDriver()
	panel, err := NewPanel(pwm, WithPin(15))
	if err != nil {
		t.Fatalf("NewPanel failed: %v", err)
	}

	if err := panel.Set(300); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if pwm.levels[15] != 300 {
		t.Errorf("Expected level 300 on pin 15, got %d", pwm.levels[15])
	}
	if _, ok := pwm.levels[DefaultPanelPin]; ok {
		t.Error("Default pin should not be driven")
	}
}

func TestClampLevel(t *testing.T) {
	tests := []struct {
		in   int
		want Level
	}{
		{in: -1000000, want: 0},
		{in: -1, want: 0},
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 999, want: 999},
		{in: 1000, want: 1000},
		{in: 1001, want: 1000},
		{in: 5000, want: 1000},
	}

	for _, test := range tests {
		if got := ClampLevel(test.in); got != test.want {
			t.Errorf("ClampLevel(%d): expected %d, got %d", test.in, test.want, got)
		}
	}
}

func TestSetThenOnDrivesValue(t *testing.T) {
	pwm := NewMockPWMDriver()
	panel, err := NewPanel(pwm)
	if err != nil {
		t.Fatalf("NewPanel failed: %v", err)
	}

	for n := 0; n <= int(MaxBrightness); n++ {
		if err := panel.Set(n); err != nil {
			t.Fatalf("Set(%d) failed: %v", n, err)
		}
		if err := panel.Off(); err != nil {
			t.Fatalf("Off failed: %v", err)
		}
		if err := panel.On(); err != nil {
			t.Fatalf("On failed: %v", err)
		}
		if pwm.levels[DefaultPanelPin] != PWMValue(n) {
			t.Fatalf("set %d then on: expected level %d, got %d", n, n, pwm.levels[DefaultPanelPin])
		}
	}
}

func TestOffKeepsBrightness(t *testing.T) {
	pwm := NewMockPWMDriver()
	panel, _ := NewPanel(pwm)

	panel.Set(640)
	panel.Off()

	if panel.Output() != 0 || pwm.levels[DefaultPanelPin] != 0 {
		t.Errorf("Expected output 0 after off, got %d", panel.Output())
	}
	if panel.Brightness() != 640 {
		t.Errorf("Off changed brightness to %d", panel.Brightness())
	}

	panel.On()
	if pwm.levels[DefaultPanelPin] != 640 {
		t.Errorf("Expected on to restore 640, got %d", pwm.levels[DefaultPanelPin])
	}
}

func TestPanelDispatchSet(t *testing.T) {
	tests := []struct {
		arg     string
		want    Level
		wantErr error
	}{
		{arg: "500", want: 500},
		{arg: "-5", want: 0},
		{arg: "5000", want: 1000},
		{arg: "+250", want: 250},
		{arg: "99999999999999999999", want: 1000},
		{arg: "-99999999999999999999", want: 0},
		{arg: "abc", wantErr: ErrInvalidNumber},
		{arg: "12abc", wantErr: ErrInvalidNumber},
		{arg: "-", wantErr: ErrInvalidNumber},
	}

	for _, test := range tests {
		panel, _ := NewPanel(NewMockPWMDriver())
		panel.Set(77)

		err := panel.Dispatch([]string{"set", test.arg})
		if err != test.wantErr {
			t.Errorf("set %s: expected error %v, got %v", test.arg, test.wantErr, err)
			continue
		}
		if test.wantErr != nil {
			if panel.Brightness() != 77 {
				t.Errorf("set %s: failed command changed brightness to %d", test.arg, panel.Brightness())
			}
			continue
		}
		if panel.Brightness() != test.want || panel.Output() != test.want {
			t.Errorf("set %s: expected %d, got brightness=%d output=%d", test.arg, test.want, panel.Brightness(), panel.Output())
		}
	}
}

func TestPanelLenientNumbers(t *testing.T) {
	panel, _ := NewPanel(NewMockPWMDriver(), WithLenientNumbers())
	panel.Set(300)

	if err := panel.Dispatch([]string{"set", "abc"}); err != nil {
		t.Fatalf("Lenient set failed: %v", err)
	}
	if panel.Brightness() != 0 {
		t.Errorf("Expected malformed number to parse as 0, got %d", panel.Brightness())
	}

	if err := panel.Dispatch([]string{"set", "42abc"}); err != nil {
		t.Fatalf("Lenient set failed: %v", err)
	}
	if panel.Brightness() != 42 {
		t.Errorf("Expected numeric prefix 42, got %d", panel.Brightness())
	}
}

func TestPanelOnOffIgnoreArguments(t *testing.T) {
	panel, _ := NewPanel(NewMockPWMDriver())
	panel.Set(10)

	if err := panel.Dispatch([]string{"off", "now"}); err != nil {
		t.Errorf("off with arguments failed: %v", err)
	}
	if err := panel.Dispatch([]string{"on", "please", "x"}); err != nil {
		t.Errorf("on with arguments failed: %v", err)
	}
	if panel.Output() != 10 {
		t.Errorf("Expected output 10, got %d", panel.Output())
	}
}

func TestPanelDispatchFailures(t *testing.T) {
	tests := []struct {
		argv    []string
		wantErr error
	}{
		{argv: nil, wantErr: ErrNoCommand},
		{argv: []string{"foo"}, wantErr: ErrUnknownCommand},
		{argv: []string{"ON"}, wantErr: ErrUnknownCommand},
		{argv: []string{"set"}, wantErr: ErrArgCount},
		{argv: []string{"set", "1", "2"}, wantErr: ErrArgCount},
	}

	for _, test := range tests {
		pwm := NewMockPWMDriver()
		panel, _ := NewPanel(pwm)
		panel.Set(123)
		writes := pwm.writes

		if err := panel.Dispatch(test.argv); err != test.wantErr {
			t.Errorf("Dispatch(%q): expected %v, got %v", test.argv, test.wantErr, err)
		}
		if pwm.writes != writes || panel.Brightness() != 123 {
			t.Errorf("Dispatch(%q) changed state", test.argv)
		}
	}
}

func TestPanelPWMError(t *testing.T) {
	pwm := NewMockPWMDriver()
	panel, _ := NewPanel(pwm)

	pwm.failWith = errors.New("bus fault")
	if err := panel.Dispatch([]string{"on"}); err == nil {
		t.Error("Expected PWM failure to surface from dispatch")
	}
	if panel.Output() != 0 {
		t.Errorf("Output should not change when the PWM write fails, got %d", panel.Output())
	}
}
