package hba

import (
	"errors"
	"os"
	"testing"

	"github.com/sigreer/perccli-exporter/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dataMegaShowAll, _     = os.ReadFile("testdata/megaraid-show-all.json")
	dataSasShowAll, _      = os.ReadFile("testdata/mpt3sas-show-all.json")
	dataShowSmart, _       = os.ReadFile("testdata/show-smart.txt")
	dataShowSmartNoData, _ = os.ReadFile("testdata/show-smart-nodata.txt")
)

func Test_testDataIsValid(t *testing.T) {
	for name, data := range map[string][]byte{
		"dataMegaShowAll":     dataMegaShowAll,
		"dataSasShowAll":      dataSasShowAll,
		"dataShowSmart":       dataShowSmart,
		"dataShowSmartNoData": dataShowSmartNoData,
	} {
		require.NotNil(t, data, name)
	}
}

func TestParseTopology_MegaRAID(t *testing.T) {
	controllers, err := ParseTopology(dataMegaShowAll)
	require.NoError(t, err)
	require.Len(t, controllers, 1)

	c := controllers[0]
	assert.Equal(t, "0", c.Index)
	assert.Equal(t, "PERC H730P Mini", c.Model)
	assert.Equal(t, "86I01NJ", c.Serial)
	assert.Equal(t, "4.300.00-8366", c.Firmware)
	assert.Equal(t, "lsi-mr3", c.Driver)
	assert.Equal(t, FamilyMegaRAID, c.Family)
	assert.Equal(t, "Optimal", c.Status)
	require.NotNil(t, c.Temperature)
	assert.Equal(t, 61, *c.Temperature)

	require.Len(t, c.Drives, 3)
	assert.Equal(t, PhysicalDrive{
		Controller: "0",
		Enclosure:  "32",
		Slot:       "0",
		DeviceID:   "0",
		State:      "Onln",
		Temp:       "27C",
		Model:      "SSDSC2KB480G8R",
		Media:      "SSD",
		Interface:  "SATA",
	}, c.Drives[0])
	assert.Equal(t, "Rbld", c.Drives[2].State)
	assert.Empty(t, c.Drives[2].Temp)

	require.Len(t, c.VirtualDrives, 2)
	assert.Equal(t, "DG0/VD0", c.VirtualDrives[0].Label())
	assert.Equal(t, "Optl", c.VirtualDrives[0].State)
	assert.Equal(t, "RAID1", c.VirtualDrives[0].RAIDType)
	assert.Equal(t, "DG1/VD1", c.VirtualDrives[1].Label())
	assert.Equal(t, "Dgrd", c.VirtualDrives[1].State)

	require.NotNil(t, c.BBU)
	assert.Equal(t, 0, c.BBU.Status)
}

func TestParseTopology_SAS(t *testing.T) {
	controllers, err := ParseTopology(dataSasShowAll)
	require.NoError(t, err)
	// the second entry carries no response data
	require.Len(t, controllers, 1)

	c := controllers[0]
	assert.Equal(t, FamilySAS, c.Family)
	assert.Equal(t, "OK", c.Status)
	require.NotNil(t, c.Temperature)
	assert.Equal(t, 48, *c.Temperature)
	assert.Empty(t, c.Drives, "sas controllers are not enumerated")
	assert.Empty(t, c.VirtualDrives)
	assert.Nil(t, c.BBU)
}

func TestParseTopology_Errors(t *testing.T) {
	tests := map[string]struct {
		input string
	}{
		"empty":              {input: ""},
		"not json":           {input: "CLI Version = 007.1910\nStatus = Failure\n"},
		"truncated":          {input: `{"Controllers":[{"Response Data":`},
		"missing root array": {input: `{"Controller":[]}`},
		"root not an array":  {input: `{"Controllers":{}}`},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			controllers, err := ParseTopology([]byte(test.input))
			assert.Nil(t, controllers)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, remote.ClassParse, remote.Classify(err))
		})
	}
}

func TestParseTopology_Defaults(t *testing.T) {
	data := `{"Controllers":[{"Response Data":{
		"Version":{"Driver Name":"megaraid_sas"},
		"Status":{"Controller Status":"Degraded","BBU Status":"NA"},
		"PD LIST":[{"EID:Slt":" :4","State":"UGood"}],
		"VD LIST":[{"State":"Optl"}]
	}}]}`

	controllers, err := ParseTopology([]byte(data))
	require.NoError(t, err)
	require.Len(t, controllers, 1)

	c := controllers[0]
	assert.Equal(t, "Unknown", c.Index)
	assert.Equal(t, "Unknown", c.Model)
	assert.Equal(t, "Unknown", c.Serial)
	assert.Equal(t, "Unknown", c.Firmware)
	assert.Nil(t, c.Temperature)
	assert.Nil(t, c.BBU)

	require.Len(t, c.Drives, 1)
	assert.Equal(t, "", c.Drives[0].Enclosure)
	assert.Equal(t, "4", c.Drives[0].Slot)
	assert.Equal(t, "/cUnknown/s4", c.Drives[0].Path())

	require.Len(t, c.VirtualDrives, 1)
	assert.Equal(t, "DG0/VD0", c.VirtualDrives[0].Label())
}

func TestParseBBU(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want *BatteryBackupUnit
	}{
		"numeric":        {raw: `8`, want: &BatteryBackupUnit{Status: 8}},
		"numeric string": {raw: `"4096"`, want: &BatteryBackupUnit{Status: 4096}},
		"NA":             {raw: `"NA"`, want: nil},
		"null":           {raw: `null`, want: nil},
		"text":           {raw: `"Failed"`, want: &BatteryBackupUnit{Status: -1}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			data := `{"Controllers":[{"Response Data":{
				"Version":{"Driver Name":"megaraid_sas"},
				"Status":{"BBU Status":` + test.raw + `}}}]}`

			controllers, err := ParseTopology([]byte(data))
			require.NoError(t, err)
			require.Len(t, controllers, 1)
			assert.Equal(t, test.want, controllers[0].BBU)
		})
	}
}

func TestClassifyDriver(t *testing.T) {
	assert.Equal(t, FamilyMegaRAID, ClassifyDriver("megaraid_sas"))
	assert.Equal(t, FamilyMegaRAID, ClassifyDriver("lsi-mr3"))
	assert.Equal(t, FamilySAS, ClassifyDriver("mpt3sas"))
	assert.Equal(t, FamilyOther, ClassifyDriver("Megaraid_SAS"))
	assert.Equal(t, FamilyOther, ClassifyDriver(""))
}

func TestExtractSmartHex(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"perccli output": {
			input: string(dataShowSmart),
			want: "0100 01 0b 00 64 64 00 00 00 00 00 00 09 32 " +
				"00 64 64 64 00 00 00 00 00 c2 22 00 1b 1b " +
				"1b 00 00 00 00 00",
		},
		"crlf line endings": {
			input: "Smart Data Info /c0/e32/s1 = \r\n2f00 01 02\r\n03 04\r\n",
			want:  "2f00 01 02 03 04",
		},
		"no smart section": {
			input: string(dataShowSmartNoData),
			want:  "",
		},
		"empty": {
			input: "",
			want:  "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, ExtractSmartHex(test.input))
		})
	}
}

func TestCommands(t *testing.T) {
	d := PhysicalDrive{Controller: "0", Enclosure: "32", Slot: "1"}

	assert.Equal(t, "/opt/lsi/perccli/perccli /call show all J", TopologyCommand(DefaultPerccliPath))
	assert.Equal(t, "/opt/lsi/perccli/perccli /c0/e32/s1 show smart", SmartCommand(DefaultPerccliPath, d))
	assert.Equal(t, "Drive /c0/e32/s1", d.Label())
}
