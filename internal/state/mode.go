package state

import "fmt"

// Mode is the game state value at 0x998.
type Mode uint16

// Modes the timer reacts to.
const (
	ModeNormalGameplay       Mode = 0x08
	ModeDoorTransition       Mode = 0x0B
	ModeStartOfCeresCutscene Mode = 0x20
	ModeEndCutscene          Mode = 0x27

	// ModeNone marks a state that was never read.
	ModeNone Mode = 0xFFFF
)

var modeNames = map[Mode]string{
	0x00:     "Off",
	0x01:     "TitleScreen",
	0x02:     "OptionsMenu",
	0x03:     "-",
	0x04:     "SelectSavedGame",
	0x05:     "LoadingArea",
	0x06:     "LoadingGameData",
	0x07:     "SettingUpGame",
	0x08:     "NormalGameplay",
	0x09:     "HitDoorBlock",
	0x0A:     "DoorTransition0",
	0x0B:     "DoorTransition",
	0x0C:     "NormalGameplayPausing",
	0x0D:     "Pausing",
	0x0E:     "LoadingPauseMenu",
	0x0F:     "InPauseMenu",
	0x10:     "LeavingPauseMenu",
	0x11:     "LeavingPauseMenu1",
	0x12:     "LeavingPauseMenu2",
	0x13:     "Dying",
	0x14:     "Dying1",
	0x15:     "Dying2",
	0x16:     "Dying3",
	0x17:     "Dying4",
	0x18:     "Dying5",
	0x19:     "Dying6",
	0x1A:     "GameOver",
	0x1B:     "ReserveTanksAuto",
	0x1C:     "-",
	0x1D:     "DebugMenu",
	0x1E:     "CutsceneEnding",
	0x1F:     "GameStarting",
	0x20:     "StartOfCeresCutscene",
	0x21:     "CeresCutscene1",
	0x22:     "CeresCutscene2",
	0x23:     "TimerUp",
	0x24:     "BlackoutAndGameover",
	0x25:     "DyingInCeres",
	0x26:     "PreEndCutscene",
	0x27:     "EndCutscene",
	0x28:     "LoadingDemo",
	0x29:     "TransitionToDemo",
	0x2A:     "PlayingDemo",
	0x2B:     "TransitionFromDemo",
	0x2C:     "TransitionFromDemo2",
	ModeNone: "None",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("%#x", uint16(m))
}

// IsPlaying covers normal gameplay through the death animation.
func (m Mode) IsPlaying() bool {
	return m >= 0x08 && m <= 0x18
}

var areaNames = map[uint16]string{
	0: "Crateria",
	1: "Brinstar",
	2: "Norfair",
	3: "Wrecked Ship",
	4: "Maridia",
	5: "Tourian",
	6: "Ceres",
	7: "Debug",
}

// AreaName returns the display name of an area index.
func AreaName(id uint16) string {
	if name, ok := areaNames[id]; ok {
		return name
	}
	return fmt.Sprintf("%#x", id)
}
