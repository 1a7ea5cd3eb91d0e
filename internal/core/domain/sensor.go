package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"drivee2mqtt/pkg/driveeapi"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE            = "bridge"
	SENSOR_ID_CHARGER_STATUS          = "charger_status"
	SENSOR_ID_CHARGING                = "charging"
	SENSOR_ID_CABLE_CONNECTED         = "cable_connected"
	SENSOR_ID_SESSION_ENERGY          = "session_energy"
	SENSOR_ID_SESSION_POWER           = "session_power"
	SENSOR_ID_SESSION_COST            = "session_cost"
	SENSOR_ID_SESSION_DURATION        = "session_duration"
	SENSOR_ID_LAST_SESSION_ENERGY     = "last_session_energy"
	SENSOR_ID_LAST_SESSION_COST       = "last_session_cost"
	SENSOR_ID_CURRENT_PRICE           = "current_price"
	SENSOR_ID_LAST_REFRESH            = "last_refresh"
	SWITCH_ID_CHARGING                = "charging_control"
	BUTTON_ID_REFRESH                 = "refresh"
	STATE_CLASS_DURATION              = "duration"
	STATE_CLASS_MEASUREMENT           = "measurement"
	STATE_CLASS_TOTAL_INCREASING      = "total_increasing"
	DEVICE_CLASS_DURATION             = "duration"
	DEVICE_CLASS_ENERGY               = "energy"
	DEVICE_CLASS_MONETARY             = "monetary"
	DEVICE_CLASS_POWER                = "power"
	DEVICE_CLASS_TIMESTAMP            = "timestamp"
	DEVICE_CLASS_CONNECTIVITY         = "connectivity"
	DEVICE_CLASS_BATTERY_CHARGING     = "battery_charging"
	DEVICE_CLASS_PLUG                 = "plug"
	ENTITY_CLASS_DIAGNOSTIC           = "diagnostic"
	ENTITY_CLASS_CONFIG               = "config"
	SENSOR_TYPE_SENSOR                = "sensor"
	SENSOR_TYPE_BINARY                = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("drivee_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Drivee",
		Model:        "Drivee2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Drivee2MQTT %s", md5HashShort(baseTopic)),
	}
}

func ChargerDevice(cp *driveeapi.ChargePoint) Device {
	return Device{
		Id:           fmt.Sprintf("drv_charger_%s", md5HashShort(cp.ID)),
		Manufacturer: "Drivee",
		Model:        "Charge Point",
		Version:      "",
		Name:         cp.Name,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func ChargerBaseSensors(chargerDevice Device, currency string) []GenericSensor {

	var sensors []GenericSensor

	// Charger status
	sensors = append(sensors, GenericSensor{
		Device:     chargerDevice,
		Id:         SENSOR_ID_CHARGER_STATUS,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Charger status",
		Icon:       "mdi:ev-station",
		UniqueId:   uniqueId(chargerDevice.Id, SENSOR_ID_CHARGER_STATUS),
	})

	// Charging
	sensors = append(sensors, GenericSensor{
		Device:      chargerDevice,
		Id:          SENSOR_ID_CHARGING,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Charging",
		DeviceClass: DEVICE_CLASS_BATTERY_CHARGING,
		UniqueId:    uniqueId(chargerDevice.Id, SENSOR_ID_CHARGING),
	})

	// Cable connected
	sensors = append(sensors, GenericSensor{
		Device:      chargerDevice,
		Id:          SENSOR_ID_CABLE_CONNECTED,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Cable connected",
		DeviceClass: DEVICE_CLASS_PLUG,
		UniqueId:    uniqueId(chargerDevice.Id, SENSOR_ID_CABLE_CONNECTED),
	})

	// Session energy
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_SESSION_ENERGY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Session energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_SESSION_ENERGY),
	})

	// Session power
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_SESSION_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Session power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_SESSION_POWER),
	})

	// Session cost
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_SESSION_COST,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Session cost",
		DeviceClass:       DEVICE_CLASS_MONETARY,
		UnitOfMeasurement: currency,
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_SESSION_COST),
	})

	// Session duration
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_SESSION_DURATION,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Session duration",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "s",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_SESSION_DURATION),
	})

	// Last session energy
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_LAST_SESSION_ENERGY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Last session energy",
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_LAST_SESSION_ENERGY),
	})

	// Last session cost
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_LAST_SESSION_COST,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Last session cost",
		DeviceClass:       DEVICE_CLASS_MONETARY,
		UnitOfMeasurement: currency,
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_LAST_SESSION_COST),
	})

	// Current price
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_CURRENT_PRICE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Current price",
		DeviceClass:       DEVICE_CLASS_MONETARY,
		UnitOfMeasurement: fmt.Sprintf("%s/kWh", currency),
		Icon:              "mdi:currency-usd",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_CURRENT_PRICE),
	})

	// Last refresh
	sensors = append(sensors, GenericSensor{
		Device:         chargerDevice,
		Id:             SENSOR_ID_LAST_REFRESH,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Last refresh",
		DeviceClass:    DEVICE_CLASS_TIMESTAMP,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(chargerDevice.Id, SENSOR_ID_LAST_REFRESH),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func ChargeControlSwitches(chargerDevice Device) []GenericSwitch {

	var switches []GenericSwitch

	// Charging control
	switches = append(switches, GenericSwitch{
		Device:   chargerDevice,
		Id:       SWITCH_ID_CHARGING,
		Name:     "Charging",
		UniqueId: uniqueId(chargerDevice.Id, SWITCH_ID_CHARGING),
		Icon:     "mdi:ev-plug-type2",
	})

	return switches
}

func ChargerButtons(chargerDevice Device) []GenericButton {

	var buttons []GenericButton

	// Refresh
	buttons = append(buttons, GenericButton{
		Device:   chargerDevice,
		Id:       BUTTON_ID_REFRESH,
		Name:     "Refresh",
		UniqueId: uniqueId(chargerDevice.Id, BUTTON_ID_REFRESH),
		Icon:     "mdi:refresh",
	})

	return buttons
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
