package ssd1680

// SSD1680 command set. Values are from the controller datasheet; only a
// subset is used by this driver, the rest are kept for reference.
type command byte

const (
	driverOutputControl    command = 0x01
	gateDrivingVoltage     command = 0x03
	sourceDrivingVoltage   command = 0x04
	deepSleepMode          command = 0x10
	dataEntryMode          command = 0x11
	swReset                command = 0x12
	tempSensorControl      command = 0x18
	tempSensorWrite        command = 0x1A
	masterActivation       command = 0x20
	displayUpdateControl1  command = 0x21
	displayUpdateControl2  command = 0x22
	writeRAMBW             command = 0x24
	writeRAMRed            command = 0x26
	vcomSense              command = 0x28
	vcomSenseDuration      command = 0x29
	programVCOMOTP         command = 0x2A
	writeVCOMRegister      command = 0x2C
	otpRegisterRead        command = 0x2D
	writeLUTRegister       command = 0x32
	dummyLinePeriod        command = 0x3A
	gateLineWidth          command = 0x3B
	borderWaveformControl  command = 0x3C
	setRAMXStartEnd        command = 0x44
	setRAMYStartEnd        command = 0x45
	autoWriteRAMRedPattern command = 0x46
	autoWriteRAMBWPattern  command = 0x47
	setRAMXAddressCounter  command = 0x4E
	setRAMYAddressCounter  command = 0x4F
	nop                    command = 0x7F
)
