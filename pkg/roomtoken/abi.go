package roomtoken

// HotelRoomTokenABI 合约 ABI
//
// 只声明后端用到的方法，与部署合约保持一致。
const HotelRoomTokenABI = `[
  {
    "name": "getAllRoomDays",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name": "offset", "type": "uint256"},
      {"name": "limit", "type": "uint256"}
    ],
    "outputs": [
      {
        "name": "",
        "type": "tuple[]",
        "components": [
          {"name": "roomId", "type": "uint256"},
          {"name": "date", "type": "uint256"},
          {"name": "year", "type": "uint16"},
          {"name": "month", "type": "uint8"},
          {"name": "day", "type": "uint8"},
          {"name": "roomType", "type": "uint8"},
          {"name": "pricePerNight", "type": "uint256"},
          {"name": "status", "type": "uint8"},
          {"name": "tokenId", "type": "uint256"},
          {"name": "owner", "type": "address"}
        ]
      }
    ]
  },
  {
    "name": "getTotals",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {
        "name": "",
        "type": "tuple[]",
        "components": [
          {"name": "year", "type": "uint16"},
          {"name": "month", "type": "uint8"},
          {"name": "day", "type": "uint8"},
          {"name": "status", "type": "uint8"},
          {"name": "roomType", "type": "uint8"},
          {"name": "count", "type": "uint256"}
        ]
      }
    ]
  },
  {
    "name": "mintMultipleRoomDays",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "roomIdStart", "type": "uint256"},
      {"name": "roomIdEnd", "type": "uint256"},
      {"name": "startTimestamp", "type": "uint256"},
      {"name": "endTimestamp", "type": "uint256"},
      {"name": "roomType", "type": "uint8"},
      {"name": "pricePerNight", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "name": "transferRoomDay",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {"name": "tokenId", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "name": "transferRoomDayMultiple",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {"name": "tokenIds", "type": "uint256[]"}
    ],
    "outputs": []
  },
  {
    "name": "setToUsed",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "tokenId", "type": "uint256"}
    ],
    "outputs": []
  }
]`
